// Package pkg provides the core libraries of SpecSync.
//
// # Overview
//
// SpecSync turns annotated design screens into Visual Business Requirements
// Documents: an Excel workbook with the annotated screen drawn on the left and
// one table row per annotation on the right. The pkg directory is organized
// into four areas:
//
//  1. Domain logic (coordinates, marker placement, worksheet layout, workbook)
//  2. Infrastructure (records, images, sessions, staged uploads, config)
//  3. Transport (HTTP API server and client)
//  4. [pipeline] - Orchestration (image → plan → build)
//
// # Architecture
//
// The typical data flow of an export:
//
//	annotated capture + annotations (table order)
//	         ↓
//	    [layout] package (probe image, plan scaling and table origin)
//	         ↓
//	    [brd] package (write image, header and rows with excelize)
//	         ↓
//	    BRD-<screen>.xlsx
//
// Marker editing runs alongside it:
//
//	pointer events
//	         ↓
//	    [geometry] package (display ↔ natural coordinates)
//	         ↓
//	    [placement] package (drag state machine, optimistic commit, rollback)
//	         ↓
//	    [client] → [server] → [store]
//
// # Quick Start
//
// Export a workbook from annotations already in memory:
//
//	runner := pipeline.NewRunner(pipeline.Options{}, logger)
//	result, err := runner.Export(ctx, pipeline.Request{
//	    ScreenID:    screen.ID,
//	    Annotations: annotations,
//	    Image:       capture,
//	})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile(result.Filename, result.Document, 0o644)
//
// # Main Packages
//
// ## Domain Logic
//
// [geometry] - Mapping between pointer positions in a zoomed, centered viewer
// and natural image pixels, plus zoom clamping.
//
// [placement] - The per-screen marker controller: drag, click-to-select,
// click-to-create and optimistic position commits.
//
// [layout] - Image probing and the worksheet plan (display size and table
// start column).
//
// [brd] - Workbook construction: column set, header row and annotation rows.
//
// [annotation] - Persisted types: projects, screens, annotations and the
// design tool's layer tree.
//
// ## Infrastructure
//
// [store] - Project, screen and annotation records (MongoDB or memory).
//
// [blob] - Content-addressed screen images (files or Redis).
//
// [session] - Session tokens (memory, files or Redis) and the request
// session context.
//
// [staging] - Streaming multipart uploads to disk with a size limit.
//
// [config] - TOML configuration with SPECSYNC_* environment overrides.
//
// [io] - Annotation files for offline export.
//
// ## Transport
//
// [server] - The chi-based HTTP API.
//
// [client] - A typed client for the API with read retries.
//
// [httputil] - Retry policy shared by HTTP clients.
//
// ## Support
//
// [errors] - Coded errors with HTTP status mapping and input validation.
//
// [observability] - Hooks for export, placement and HTTP events.
//
// [buildinfo] - Version information set at build time.
package pkg
