// Package io reads and writes annotation files: the JSON form of a screen's
// annotations used for offline export.
//
// # JSON Format
//
// An annotation file is either the body of GET /api/v1/screens/{id}:
//
//	{
//	  "screen": {"id": "2f0c...", "name": "Cart", "imageWidth": 1440, "imageHeight": 900},
//	  "annotations": [
//	    {"id": "a1", "marker": "1", "x": 120, "y": 64, "section": "Header"},
//	    {"id": "a2", "marker": "2", "x": 880, "y": 410, "isRequired": true}
//	  ]
//	}
//
// or a bare array of annotations. Array order is table order in the exported
// workbook. Coordinates are natural image pixels.
//
// # Validation
//
// [ReadJSON] rejects files that the exporter could not render faithfully:
// missing or malformed markers, negative or non-finite coordinates, duplicate
// annotation ids, and (when the screen size is known) positions outside the
// image.
package io
