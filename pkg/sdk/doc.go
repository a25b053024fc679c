// Package evidex embeds the evidex evidence retrieval engine in a Go program.
//
// A Client ingests plain-text documents, classifies and chunks them, and
// ranks chunks as evidence for a query or for named target sections. The
// corpus lives in Redis/Valkey, in process (chromem plus a sqlite catalog)
// or in qdrant.
//
//	client, err := evidex.New(ctx, evidex.WithEmbedded("/var/lib/evidex"))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	doc, _ := client.Ingest(ctx, evidex.IngestRequest{
//	    SourcePath: "sam-iep.txt",
//	    Text:       text,
//	    SubjectID:  "student-9",
//	})
//	set, _ := client.RetrieveEvidence(ctx,
//	    []evidex.Section{evidex.SectionAnnualGoals, evidex.SectionServices},
//	    evidex.SearchContext{SubjectID: "student-9"},
//	)
package evidex
