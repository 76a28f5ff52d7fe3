// Package manifest parses and validates the declarative agent manifest.
//
// A manifest lives at the project root as agent.yaml (also .yml, .toml or
// .json) and declares the package id, its semantic version, an entrypoint
// reference, exported units and optional rpc/http/ui surfaces:
//
//	id: classifier
//	version: 1.2.0
//	entrypoint: src.main:handler
//	exports:
//	  - id: classify
//	    path: src.classify:run
//	private:
//	  - id: prompts
//	    path: prompts
//	metadata:
//	  authors: [Ada]
//	  license: MIT
//	  runtime: python3.11
//	surfaces:
//	  rpc: {service: src.server:serve}
//	  http: {entry: src.index:mount}
//	  ui: {path: ui}
//
// Validation never stops at the first problem: a SchemaError lists every
// violated field so authors can fix them in one pass.
package manifest
