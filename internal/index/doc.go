// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index keeps a LlamaIndex server in step with a notes directory
// and asks it questions.
//
// The server speaks a small JSON protocol:
//
//	POST   <base>/indexing {"path": DIR}   index a whole directory
//	PATCH  <base>/indexing {"path": FILE}  (re)index one created or changed path
//	DELETE <base>/indexing {"path": FILE}  drop one path from the index
//	POST   <base>/         {"query": Q}    answer Q from the index (markdown)
//
// A Watcher turns filesystem events under a directory into PATCH and DELETE
// calls. A rename is sent as a PATCH of the new path followed by a DELETE
// of the old one.
//
// Usage:
//
//	client := index.NewClient("http://localhost:8000", time.Minute)
//	if _, err := client.Sync(ctx, index.MethodAdd, "/home/me/notes"); err != nil {
//	    return err
//	}
//	w, err := index.NewWatcher("/home/me/notes", client, 500*time.Millisecond)
//	if err != nil {
//	    return err
//	}
//	w.Start(ctx)
//	defer w.Stop()
package index
