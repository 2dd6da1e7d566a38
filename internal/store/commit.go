package store

import "context"

// commit publishes stagedMeta as the new generation: it is written to
// the slot inactive under the handle's current counter parity, the
// handle adopts it in memory, and only then is the on-disk counter word
// advanced. If the counter write fails, the handle's meta and counter
// are restored to the previous generation. A crash between the meta
// write and the counter write leaves the previous generation
// authoritative, since the counter on the medium has not moved; the new
// contents sit in a slot nothing references yet.
func commit(ctx context.Context, h *Handle, stagedMeta *FileMeta) error {
	newCounter := h.metaCounter + 1
	stagedMeta.Counter = newCounter

	if err := writeMetaFile(ctx, h.transport, h.fd, h.km, h.metaCounter, stagedMeta, h.wrappingKey); err != nil {
		return err
	}

	prevMeta, prevCounter := h.meta, h.metaCounter
	h.meta = *stagedMeta
	h.metaCounter = newCounter

	if err := writeMetaCounter(ctx, h.transport, h.fd, newCounter); err != nil {
		h.meta, h.metaCounter = prevMeta, prevCounter
		return err
	}
	return nil
}
