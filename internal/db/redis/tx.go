package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragdex/internal/db"
)

// TxApply executes the write set in a single MULTI/EXEC transaction on a
// dedicated connection. Deletions are queued first so replaced keys never
// coexist with their successors.
func (s *Store) TxApply(ctx context.Context, op db.TxOp) error {
	if op.IsEmpty() {
		return nil
	}

	return s.client.Dedicated(func(c rueidis.DedicatedClient) error {
		cmds := make([]rueidis.Completed, 0, len(op.Del)+len(op.HSet)+len(op.JSONSet)+len(op.Set)+2)
		cmds = append(cmds, c.B().Multi().Build())

		if len(op.Del) > 0 {
			cmds = append(cmds, c.B().Del().Key(op.Del...).Build())
		}
		for _, item := range op.HSet {
			hset := c.B().Hset().Key(item.Key).FieldValue()
			for k, v := range item.Fields {
				hset = hset.FieldValue(k, v)
			}
			cmds = append(cmds, hset.Build())
		}
		for _, item := range op.JSONSet {
			cmds = append(cmds, c.B().Arbitrary("JSON.SET").Keys(item.Key).Args(item.Path, string(item.Data)).Build())
		}
		for _, item := range op.Set {
			cmds = append(cmds, c.B().Set().Key(item.Key).Value(string(item.Value)).Build())
		}

		cmds = append(cmds, c.B().Exec().Build())

		results := c.DoMulti(ctx, cmds...)

		// Queueing errors abort the transaction before EXEC.
		for _, res := range results[:len(results)-1] {
			if err := res.Error(); err != nil {
				return &db.Error{Op: db.OpExec, Err: fmt.Errorf("%w: %w", db.ErrTxAborted, err)}
			}
		}

		execRes := results[len(results)-1]
		if err := execRes.Error(); err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
		replies, err := execRes.ToArray()
		if err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
		for _, reply := range replies {
			if err := reply.Error(); err != nil {
				return &db.Error{Op: db.OpExec, Err: err}
			}
		}
		return nil
	})
}
