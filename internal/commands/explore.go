package commands

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"marchbot/internal/store"
	logx "marchbot/pkg/logx"
)

// Explore walks the area forest. Navigation (root, parent, child, absolute
// jump) is free; only the reward evaluation on a concrete node consumes the
// daily counter. Over-limit visits still show the node's choices.
func (e Env) Explore(ctx context.Context, handle, rawPath string, rng *rand.Rand) (string, error) {
	sessRow, curPath, err := e.Repo.GetSession(ctx, handle)
	if err != nil {
		return "", fmt.Errorf("explore: session: %w", err)
	}
	curPath = NormalizePath(curPath)

	newPath, err := e.resolvePath(ctx, curPath, rawPath)
	if err != nil {
		return "", err
	}
	node := PathLast(newPath)

	// Root: show the starting choices, no quota touched.
	if node == "" {
		roots, err := e.Repo.ListChildren(ctx, "")
		if err != nil {
			return "", fmt.Errorf("explore: roots: %w", err)
		}
		if len(roots) == 0 {
			return "탐색 가능한 루트 구역이 없습니다.", nil
		}
		if err := e.Repo.SetSessionPath(ctx, sessRow, ""); err != nil {
			return "", fmt.Errorf("explore: session update: %w", err)
		}
		return "탐색 시작 지점입니다.\n\n" + childrenBullets(roots), nil
	}

	ok, err := e.Repo.NodeExists(ctx, node)
	if err != nil {
		return "", fmt.Errorf("explore: node lookup: %w", err)
	}
	if !ok {
		return fmt.Sprintf("해당 구역을 찾을 수 없습니다: %s", node), nil
	}

	limit := e.Repo.Conf.Int(ctx, "탐색_일일제한", 3)
	currencyKey := e.Repo.Conf.Str(ctx, "통화키", "갈레온")

	var text string
	overLimit := false

	mu := e.Repo.LockFor(handle)
	mu.Lock()
	used, err := e.Repo.TodayUsage(ctx, handle)
	if err != nil {
		mu.Unlock()
		return "", fmt.Errorf("explore: usage: %w", err)
	}
	switch {
	case used >= limit:
		overLimit = true
	default:
		cfgNode, err := e.Repo.GetNode(ctx, node)
		if err != nil {
			mu.Unlock()
			return "", fmt.Errorf("explore: node config: %w", err)
		}
		if cfgNode == nil {
			mu.Unlock()
			return fmt.Sprintf("해당 구역에는 설정 행이 없습니다: %s", node), nil
		}
		var consumed bool
		text, consumed = e.applyReward(ctx, handle, cfgNode, currencyKey, rng)
		if consumed {
			if err := e.Repo.IncTodayUsage(ctx, handle); err != nil {
				mu.Unlock()
				return "", fmt.Errorf("explore: usage increment: %w", err)
			}
		}
	}
	mu.Unlock()

	children, err := e.Repo.ListChildren(ctx, node)
	if err != nil {
		return "", fmt.Errorf("explore: children: %w", err)
	}
	if overLimit {
		text = fmt.Sprintf("탐색은 하루 %d회까지 가능합니다.", limit)
		if len(children) > 0 {
			text += "\n\n" + childrenBullets(children)
		}
		return text, nil
	}
	if len(children) > 0 {
		text += "\n\n" + childrenBullets(children)
	}
	if err := e.Repo.SetSessionPath(ctx, sessRow, newPath); err != nil {
		return "", fmt.Errorf("explore: session update: %w", err)
	}
	return text, nil
}

// resolvePath interprets the navigation token against the current path:
// "루트" → root, ".." → parent, a path with "/" → absolute jump, a bare
// name → child of the current node when it is one, else absolute.
func (e Env) resolvePath(ctx context.Context, curPath, token string) (string, error) {
	token = strings.TrimSpace(token)
	switch {
	case token == "루트":
		return "", nil
	case token == "..":
		return PathParent(curPath), nil
	case strings.Contains(token, "/"):
		return NormalizePath(token), nil
	}
	parent := PathLast(curPath)
	if parent == "" {
		return NormalizePath(token), nil
	}
	children, err := e.Repo.ListChildren(ctx, parent)
	if err != nil {
		return "", fmt.Errorf("explore: children of %s: %w", parent, err)
	}
	for _, c := range children {
		if c == token {
			return NormalizePath(curPath + "/" + token), nil
		}
	}
	return NormalizePath(token), nil
}

type rewardKind int

const (
	rewardCoin rewardKind = iota
	rewardItem
	rewardRumor
)

func rewardValid(n *store.ExploreNode, k rewardKind) bool {
	switch k {
	case rewardCoin:
		return n.CoinMin > 0 || n.CoinMax > 0
	case rewardItem:
		return n.Item != "" && n.Qty > 0
	case rewardRumor:
		return n.Rumor != ""
	}
	return false
}

// chooseReward picks uniformly among coin/item/rumor; when the first pick
// has no valid content it falls back to a uniform pick among the valid
// categories. Returns false when the node has nothing to give.
func chooseReward(n *store.ExploreNode, rng *rand.Rand) (rewardKind, bool) {
	pick := rewardKind(rng.Intn(3))
	if rewardValid(n, pick) {
		return pick, true
	}
	var avail []rewardKind
	for _, k := range []rewardKind{rewardCoin, rewardItem, rewardRumor} {
		if rewardValid(n, k) {
			avail = append(avail, k)
		}
	}
	if len(avail) == 0 {
		return 0, false
	}
	return avail[rng.Intn(len(avail))], true
}

// applyReward resolves and grants one reward for the node. The second
// return reports whether the visit consumed the daily counter.
func (e Env) applyReward(ctx context.Context, handle string, n *store.ExploreNode, currencyKey string, rng *rand.Rand) (string, bool) {
	base := n.Place
	kind, ok := chooseReward(n, rng)
	if !ok {
		return base, false
	}

	switch kind {
	case rewardCoin:
		lo := n.CoinMin
		if lo < 0 {
			lo = 0
		}
		hi := n.CoinMax
		if hi < lo {
			hi = lo
		}
		amt := 0
		if hi > 0 {
			amt = lo + rng.Intn(hi-lo+1)
		}
		if amt <= 0 {
			return base, false
		}
		if err := e.Repo.AddCurrency(ctx, handle, amt); err != nil {
			e.Log.Warn("explore currency grant failed",
				logx.String("handle", handle), logx.Err(err))
			return base, false
		}
		return fmt.Sprintf("%s\n획득: %s +%d", base, currencyKey, amt), true

	case rewardItem:
		if err := e.Repo.AddItem(ctx, handle, n.Item, n.Qty); err != nil {
			e.Log.Warn("explore item grant failed",
				logx.String("handle", handle), logx.Err(err))
			return base, false
		}
		return fmt.Sprintf("%s\n획득: %s x%d", base, n.Item, n.Qty), true

	default: // rumor
		return fmt.Sprintf("%s\n소문: %s", base, n.Rumor), true
	}
}

func childrenBullets(children []string) string {
	if len(children) == 0 {
		return ""
	}
	lines := make([]string, len(children))
	for i, c := range children {
		lines[i] = "- [탐색/" + c + "]"
	}
	return "추가로 조사할 곳:\n" + strings.Join(lines, "\n")
}
