package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Repo exposes the game's domain operations over a TableAPI.
//
// It intentionally knows nothing about networking or caching: the TableAPI
// underneath handles retries and snapshot TTLs. What Repo adds is the row
// model (headers, fixed write columns, row upserts) and the per-user lock
// registry that callers use to serialize read-modify-write sequences, since
// the backing store has no transactions of its own.
type Repo struct {
	api   TableAPI
	Conf  *ConfigCache
	locks *Keyed

	ws           Worksheets
	withAtColumn bool // bag columns headed "@handle" instead of "handle"
	bagEnabled   bool

	// bagMu serializes all 가방 writes. Column/row allocation grows shared
	// sheet structure, so the per-handle locks are not enough there.
	bagMu sync.Mutex

	tz  *time.Location
	now func() time.Time // test hook
}

func NewRepo(api TableAPI, conf *ConfigCache, ws Worksheets, userColumnStyle string, bagEnabled bool, tz *time.Location) *Repo {
	if tz == nil {
		tz = time.UTC
	}
	return &Repo{
		api:          api,
		Conf:         conf,
		locks:        NewKeyed(),
		ws:           ws,
		withAtColumn: userColumnStyle == "with_at",
		bagEnabled:   bagEnabled,
		tz:           tz,
		now:          time.Now,
	}
}

// LockFor returns the mutex serializing all mutations for handle.
// Every read-then-write sequence against a runner's rows must run inside it.
func (r *Repo) LockFor(handle string) *sync.Mutex { return r.locks.Acquire(handle) }

// TodayYMD is the current calendar date in the bot timezone.
func (r *Repo) TodayYMD() string { return r.now().In(r.tz).Format("2006-01-02") }

// NowStamp is the timestamp format written to session/participation rows.
func (r *Repo) NowStamp() string { return r.now().In(r.tz).Format("2006-01-02 15:04:05") }

// ---------- 러너 ----------

// Fixed write columns of the 러너 worksheet (1-based).
const (
	runnerColNickname    = 2
	runnerColPoints      = 4
	runnerColLastAttend  = 5
	runnerColLastConfirm = 6
)

// GetRunner returns (rowIndex, runner) for handle, appending a fresh row on
// first contact. rowIndex is 1-based as the sheet counts it.
func (r *Repo) GetRunner(ctx context.Context, handle string) (int, Runner, error) {
	for attempt := 0; ; attempt++ {
		vals, err := r.api.ReadAll(ctx, r.ws.Runner)
		if err != nil {
			return 0, Runner{}, err
		}
		hdr := headerIndex(vals)
		cu, ok1 := hdr["유저명"]
		cn, ok2 := hdr["닉네임"]
		cd, ok3 := hdr["기숙사"]
		cp, ok4 := hdr["기숙사점수"]
		ca, ok5 := hdr["출석마지막일"]
		cc, ok6 := hdr["이벤트확인마지막일"]
		if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
			return 0, Runner{}, fmt.Errorf("worksheet %q: header mismatch", r.ws.Runner)
		}

		for i, row := range vals[1:] {
			if trim(cell(row, cu)) != handle {
				continue
			}
			return i + 2, Runner{
				Handle:          handle,
				Nickname:        cell(row, cn),
				Dorm:            cell(row, cd),
				HousePoints:     atoiDefault(cell(row, cp), 0),
				LastAttendDate:  cell(row, ca),
				LastConfirmDate: cell(row, cc),
			}, nil
		}

		if attempt > 0 {
			return 0, Runner{}, fmt.Errorf("worksheet %q: appended row for %q not visible", r.ws.Runner, handle)
		}
		// First contact: idempotent upsert keyed by handle.
		if err := r.api.AppendRow(ctx, r.ws.Runner, []string{handle, "", "", "0", "", ""}); err != nil {
			return 0, Runner{}, err
		}
	}
}

func (r *Repo) UpdateRunnerNickname(ctx context.Context, rowIdx int, nickname string) error {
	return r.api.UpdateCell(ctx, r.ws.Runner, rowIdx, runnerColNickname, nickname)
}

func (r *Repo) UpdateRunnerPoints(ctx context.Context, rowIdx, points int) error {
	return r.api.UpdateCell(ctx, r.ws.Runner, rowIdx, runnerColPoints, strconv.Itoa(points))
}

func (r *Repo) UpdateRunnerLastAttend(ctx context.Context, rowIdx int, ymd string) error {
	return r.api.UpdateCell(ctx, r.ws.Runner, rowIdx, runnerColLastAttend, ymd)
}

func (r *Repo) UpdateRunnerLastConfirm(ctx context.Context, rowIdx int, ymd string) error {
	return r.api.UpdateCell(ctx, r.ws.Runner, rowIdx, runnerColLastConfirm, ymd)
}

// ---------- 제한 (daily usage counter) ----------

func (r *Repo) limitsCols(vals [][]string) (cu, cd, cc int, err error) {
	hdr := headerIndex(vals)
	cu, ok1 := hdr["유저명"]
	cd, ok2 := hdr["날짜"]
	cc, ok3 := hdr["탐색_사용횟수"]
	if !(ok1 && ok2 && ok3) {
		return 0, 0, 0, fmt.Errorf("worksheet %q: header mismatch", r.ws.Limits)
	}
	return cu, cd, cc, nil
}

// TodayUsage returns the exploration count consumed today by handle.
func (r *Repo) TodayUsage(ctx context.Context, handle string) (int, error) {
	ymd := r.TodayYMD()
	vals, err := r.api.ReadAll(ctx, r.ws.Limits)
	if err != nil {
		return 0, err
	}
	cu, cd, cc, err := r.limitsCols(vals)
	if err != nil {
		return 0, err
	}
	for _, row := range vals[1:] {
		if trim(cell(row, cu)) == handle && trim(cell(row, cd)) == ymd {
			return atoiDefault(cell(row, cc), 0), nil
		}
	}
	return 0, nil
}

// IncTodayUsage bumps today's counter for handle, creating the row on first
// use of the day. Call only inside the handle's lock.
func (r *Repo) IncTodayUsage(ctx context.Context, handle string) error {
	ymd := r.TodayYMD()
	vals, err := r.api.ReadAll(ctx, r.ws.Limits)
	if err != nil {
		return err
	}
	cu, cd, cc, err := r.limitsCols(vals)
	if err != nil {
		return err
	}
	for i, row := range vals[1:] {
		if trim(cell(row, cu)) == handle && trim(cell(row, cd)) == ymd {
			cur := atoiDefault(cell(row, cc), 0) + 1
			return r.api.UpdateCell(ctx, r.ws.Limits, i+2, cc+1, strconv.Itoa(cur))
		}
	}
	return r.api.AppendRow(ctx, r.ws.Limits, []string{handle, ymd, "1"})
}

// ---------- 탐색 (explore nodes) ----------

func (r *Repo) exploreRows(ctx context.Context) ([][]string, map[string]int, error) {
	vals, err := r.api.ReadAll(ctx, r.ws.Explore)
	if err != nil {
		return nil, nil, err
	}
	hdr := headerIndex(vals)
	for _, k := range []string{"구역", "부모구역", "장소스크립트", "갈레온_최소", "갈레온_최대", "아이템명", "아이템수량", "소문스크립트"} {
		if _, ok := hdr[k]; !ok {
			return nil, nil, fmt.Errorf("worksheet %q: missing column %q", r.ws.Explore, k)
		}
	}
	return vals, hdr, nil
}

func (r *Repo) NodeExists(ctx context.Context, area string) (bool, error) {
	vals, hdr, err := r.exploreRows(ctx)
	if err != nil {
		return false, err
	}
	ia := hdr["구역"]
	for _, row := range vals[1:] {
		if trim(cell(row, ia)) == area {
			return true, nil
		}
	}
	return false, nil
}

// GetNode returns the first row whose 구역 equals area, or nil when absent.
func (r *Repo) GetNode(ctx context.Context, area string) (*ExploreNode, error) {
	vals, hdr, err := r.exploreRows(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range vals[1:] {
		if trim(cell(row, hdr["구역"])) != area {
			continue
		}
		qty := atoiDefault(trim(cell(row, hdr["아이템수량"])), 0)
		if qty < 0 {
			qty = 0
		}
		return &ExploreNode{
			Area:    area,
			Parent:  trim(cell(row, hdr["부모구역"])),
			Place:   cell(row, hdr["장소스크립트"]),
			CoinMin: atoiDefault(trim(cell(row, hdr["갈레온_최소"])), 0),
			CoinMax: atoiDefault(trim(cell(row, hdr["갈레온_최대"])), 0),
			Item:    trim(cell(row, hdr["아이템명"])),
			Qty:     qty,
			Rumor:   trim(cell(row, hdr["소문스크립트"])),
		}, nil
	}
	return nil, nil
}

// ListChildren returns the unique, sorted 구역 names whose 부모구역 equals
// parent. An empty parent lists the roots.
func (r *Repo) ListChildren(ctx context.Context, parent string) ([]string, error) {
	vals, hdr, err := r.exploreRows(ctx)
	if err != nil {
		return nil, err
	}
	ia, ipar := hdr["구역"], hdr["부모구역"]
	seen := map[string]bool{}
	for _, row := range vals[1:] {
		if trim(cell(row, ipar)) != parent {
			continue
		}
		if child := trim(cell(row, ia)); child != "" {
			seen[child] = true
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// ---------- 세션 ----------

const (
	sessionColPath    = 2
	sessionColUpdated = 3
)

// GetSession returns (rowIndex, current path) for handle, creating the row
// on first exploration.
func (r *Repo) GetSession(ctx context.Context, handle string) (int, string, error) {
	for attempt := 0; ; attempt++ {
		vals, err := r.api.ReadAll(ctx, r.ws.Session)
		if err != nil {
			return 0, "", err
		}
		hdr := headerIndex(vals)
		cu, ok1 := hdr["유저명"]
		cp, ok2 := hdr["현재경로"]
		if !(ok1 && ok2) {
			return 0, "", fmt.Errorf("worksheet %q: header mismatch", r.ws.Session)
		}
		for i, row := range vals[1:] {
			if trim(cell(row, cu)) == handle {
				return i + 2, cell(row, cp), nil
			}
		}
		if attempt > 0 {
			return 0, "", fmt.Errorf("worksheet %q: appended row for %q not visible", r.ws.Session, handle)
		}
		if err := r.api.AppendRow(ctx, r.ws.Session, []string{handle, "", ""}); err != nil {
			return 0, "", err
		}
	}
}

func (r *Repo) SetSessionPath(ctx context.Context, rowIdx int, path string) error {
	if err := r.api.UpdateCell(ctx, r.ws.Session, rowIdx, sessionColPath, path); err != nil {
		return err
	}
	return r.api.UpdateCell(ctx, r.ws.Session, rowIdx, sessionColUpdated, r.NowStamp())
}

// ---------- 참여기록 (participation log) ----------

// HasParticipation reports whether (typ, noticeID, handle) was already granted.
func (r *Repo) HasParticipation(ctx context.Context, typ, noticeID, handle string) (bool, error) {
	vals, err := r.api.ReadAll(ctx, r.ws.Participation)
	if err != nil {
		return false, err
	}
	hdr := headerIndex(vals)
	it, ok1 := hdr["유형"]
	iid, ok2 := hdr["공지ID"]
	iu, ok3 := hdr["유저명"]
	if !(ok1 && ok2 && ok3) {
		return false, fmt.Errorf("worksheet %q: header mismatch", r.ws.Participation)
	}
	for _, row := range vals[1:] {
		if cell(row, it) == typ && cell(row, iid) == noticeID && cell(row, iu) == handle {
			return true, nil
		}
	}
	return false, nil
}

// AppendParticipation records a grant. Call inside the handle's lock together
// with the HasParticipation check.
func (r *Repo) AppendParticipation(ctx context.Context, typ, noticeID, handle string) error {
	return r.api.AppendRow(ctx, r.ws.Participation, []string{typ, noticeID, handle, r.NowStamp()})
}

func atoiDefault(s string, def int) int {
	s = trim(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
