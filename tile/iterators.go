package tile

import (
	"errors"
	"iter"
)

var errVisitCancelled = errors.New("visit cancelled")

// IterTiles returns an iterator over all tiles in the tileset.
// It yields tile IDs and their data. Iteration may panic on unrecoverable errors.
func IterTiles(r Visitor) iter.Seq2[ID, []byte] {
	return func(yield func(ID, []byte) bool) {
		err := r.VisitTiles(func(tileID ID, tileData []byte) error {
			if !yield(tileID, tileData) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}

// Copy writes every tile visited in r to w and finalizes w.
// It returns the number of copied tiles.
func Copy(w Writer, r Visitor, progress func(ID)) (int, error) {
	count := 0
	err := r.VisitTiles(func(tileID ID, tileData []byte) error {
		if err := w.WriteTile(tileID, tileData); err != nil {
			return err
		}
		count++
		if progress != nil {
			progress(tileID)
		}
		return nil
	})
	if err != nil {
		return count, err
	}
	return count, w.Finalize()
}
