// Package memcube is an embedded, multi-tenant semantic memory store.
//
// A Store manages users and memory cubes. A cube is one embedding space
// plus a table of memory records: texts extracted from conversations,
// embedded into fixed-dimension vectors, and searchable by cosine
// similarity. Users hold access grants to cubes; every operation is
// mediated by the store and scoped to the calling user's grants.
//
// # Quick Start
//
//	embedder := openai.NewEmbedder()
//	store, err := memcube.New(embedder,
//	    memcube.WithGenerator(llmopenai.NewGenerator()),
//	)
//	if err != nil {
//	    panic(err)
//	}
//	defer store.Close()
//
//	user, _ := store.GetOrCreateUser("alice")
//	cube, _ := store.RegisterCube(ctx, user)
//
//	store.AddForUser(ctx, user, []model.Message{
//	    {Role: model.RoleUser, Content: "I live in Lisbon."},
//	    {Role: model.RoleAssistant, Content: "Noted!"},
//	})
//
//	results, _ := store.SearchForUser(ctx, user, "Where does the user live?")
//	for cubeID, hits := range results {
//	    for _, hit := range hits {
//	        fmt.Println(cubeID, hit.Score, hit.Record.Text)
//	    }
//	}
//
// Ingestion runs a pipeline: a reader extracts candidate memory texts from
// the turns (optionally distilling facts with a chat model), then each
// candidate is embedded and inserted. A failed pipeline stage surfaces as
// a *PipelineFault and never leaves a partial insert.
//
// # Snapshots and the Restart Protocol
//
// Cube.Dump writes a self-contained, content-only snapshot: a manifest
// plus a checksummed, compressed record table. Snapshots never carry user
// identity or access grants.
//
// Because grants are not persisted, restoring state after a restart is a
// two-step protocol: re-register the cube (re-creating the grant), then
// load the snapshot into it.
//
//	// before restart
//	store.DumpForUser(ctx, user, dir)
//
//	// after restart
//	user, _ = store.GetOrCreateUser("alice")
//	cube, _ := store.RegisterCube(ctx, user, memcube.WithCubeID(cubeID))
//	store.LoadCube(ctx, cube, dir)
//
// RegisterCube with FromDir or FromBucket collapses the two steps when the
// snapshot source is known at registration time.
//
// # Configuration
//
// memcube.FromConfig builds a Store from a JSON document of tagged unions
// selecting the chat model, extraction pipeline, embedder, and index
// backend; see the config package.
package memcube
