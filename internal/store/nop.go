package store

import "context"

// nopStore discards every turn. Selected with WHOCHAT_HISTORY_DB=disabled
// for deployments that must not persist chat content.
type nopStore struct{}

// Nop returns a TranscriptStore that retains nothing.
func Nop() TranscriptStore { return nopStore{} }

func (nopStore) Append(context.Context, string, Turn) error      { return nil }
func (nopStore) History(context.Context, string) ([]Turn, error) { return nil, nil }
func (nopStore) Clear(context.Context, string) error             { return nil }
func (nopStore) Close() error                                    { return nil }
