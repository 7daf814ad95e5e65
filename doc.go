// Package strata is an embeddable, schema-validated data store backed by a
// git object store. Tables, relations and keys live as blobs in a
// repository; every mutation is a commit, checkpoints are tags, and
// rollback is a branch move.
//
// Open a store, then an engine:
//
//	store, err := ps.NewMemoryStore()
//	if err != nil {
//		...
//	}
//	engine := strata.Open(store).Engine(db.DefaultConfig())
//
//	err = engine.CreateTable("users", map[string]core.FieldSpec{
//		"name":  {Type: core.StringType, Required: true},
//		"email": {Type: core.StringType, Required: true, Unique: true},
//	})
//	id, err := engine.Insert("users", map[string]any{
//		"name":  "Alice",
//		"email": "alice@example.com",
//	})
package strata
