package storage

// Package storage provides a minimal local persistence layer used by the bot.
//
// It currently supports:
//   - Audit log appends (one record per handled mention)
//   - Seen-status dedup state (so replayed mentions after a stream
//     reconnect are not handled twice)
