/*
Package storage persists prediction history for the dops CLI in BoltDB.

Each successful prediction is saved as one JSON-encoded Entry in the
"predictions" bucket of <dataDir>/dops.db. Keys are version 7 UUIDs, which
sort by creation time, so listing newest first is a reverse cursor walk
with no secondary index.

	store, err := storage.NewBoltStore(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	_ = store.Save(&storage.Entry{State: "Kerala", District: "Ernakulam", Records: records})
	recent, _ := store.List(10)

History is a CLI concern. The warm-up session itself keeps nothing on disk.
*/
package storage
