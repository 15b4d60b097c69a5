package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/codegraph/api"
)

func parseTS(t *testing.T, src string) api.ParseResult {
	t.Helper()
	return ParseFile(context.Background(), []byte(src), "test.ts", api.LangTypeScript)
}

func TestTSDefaultImport(t *testing.T) {
	res := parseTS(t, `import express from "express";`)
	require.Len(t, res.Imports, 1)
	imp := res.Imports[0]
	assert.Equal(t, "express", imp.Source)
	assert.True(t, imp.IsDefault)
	assert.Equal(t, []string{"express"}, imp.Names)
}

func TestTSNamespaceImport(t *testing.T) {
	res := parseTS(t, `import * as fs from "node:fs";`)
	require.Len(t, res.Imports, 1)
	imp := res.Imports[0]
	assert.True(t, imp.IsNamespace)
	assert.Equal(t, []string{"fs"}, imp.Names)
}

func TestTSNamedImportsWithAlias(t *testing.T) {
	res := parseTS(t, `import {a, b as c} from "./m";`)
	require.Len(t, res.Imports, 1)
	assert.Equal(t, []string{"a", "c"}, res.Imports[0].Names)
	assert.False(t, res.Imports[0].IsDefault)
}

func TestTSTypeOnlyImport(t *testing.T) {
	res := parseTS(t, `import type {User} from "./user";`)
	require.Len(t, res.Imports, 1)
	assert.True(t, res.Imports[0].IsTypeOnly)
}

func TestTSDynamicImport(t *testing.T) {
	res := parseTS(t, `const mod = await import("./lazy");`)
	var dynamic []api.Import
	for _, imp := range res.Imports {
		if imp.IsDynamic {
			dynamic = append(dynamic, imp)
		}
	}
	require.Len(t, dynamic, 1)
	assert.Equal(t, "./lazy", dynamic[0].Source)
	assert.Empty(t, dynamic[0].Names)
}

func TestTSExportedClassWithHeritage(t *testing.T) {
	res := parseTS(t, `
import {Base} from "./base";
export class Service extends Base implements Runnable, Closeable {
  run() {}
}`)
	var cls *api.SymbolDecl
	for i := range res.Symbols {
		if res.Symbols[i].Name == "Service" {
			cls = &res.Symbols[i]
		}
	}
	require.NotNil(t, cls)
	assert.Equal(t, api.KindClass, cls.Kind)
	assert.Equal(t, "Base", cls.Extends)
	assert.Equal(t, []string{"Runnable", "Closeable"}, cls.Implements)

	names := symbolNames(res)
	assert.Contains(t, names, "Service.run")

	var exports []string
	for _, e := range res.Exports {
		exports = append(exports, e.Name)
	}
	assert.Contains(t, exports, "Service")
}

func TestTSReExport(t *testing.T) {
	res := parseTS(t, `export {User, Admin} from "./users";`)
	require.Len(t, res.Exports, 2)
	assert.True(t, res.Exports[0].IsReExport)
	assert.Equal(t, "./users", res.Exports[0].Source)
}

func TestTSExportStar(t *testing.T) {
	res := parseTS(t, `export * from "./all";`)
	require.Len(t, res.Exports, 1)
	assert.Equal(t, "*", res.Exports[0].Name)
	assert.True(t, res.Exports[0].IsReExport)
}

func TestTSDefaultExport(t *testing.T) {
	res := parseTS(t, "function handler() {}\nexport default handler;\n")
	var def []api.Export
	for _, e := range res.Exports {
		if e.IsDefault {
			def = append(def, e)
		}
	}
	require.Len(t, def, 1)
	assert.Equal(t, "handler", def[0].Name)
}

func TestTSInterfaceEnumTypeAlias(t *testing.T) {
	res := parseTS(t, `
export interface Shape { area(): number }
export enum Color { Red, Green }
export type ID = string;
const MAX = 10;
`)
	kinds := make(map[string]string)
	for _, s := range res.Symbols {
		kinds[s.Name] = s.Kind
	}
	assert.Equal(t, api.KindInterface, kinds["Shape"])
	assert.Equal(t, api.KindEnum, kinds["Color"])
	assert.Equal(t, api.KindType, kinds["ID"])
	assert.Equal(t, api.KindVariable, kinds["MAX"])
}

func TestTSXParses(t *testing.T) {
	res := ParseFile(context.Background(), []byte(`
export function App() {
  return <div className="app">hello</div>;
}`), "app.tsx", api.LangTypeScript)
	assert.Contains(t, symbolNames(res), "App")
}

func TestJavaScriptClassExtends(t *testing.T) {
	res := ParseFile(context.Background(), []byte(`
class Dog extends Animal {
  bark() {}
}`), "dog.js", api.LangJavaScript)
	var cls *api.SymbolDecl
	for i := range res.Symbols {
		if res.Symbols[i].Name == "Dog" {
			cls = &res.Symbols[i]
		}
	}
	require.NotNil(t, cls)
	assert.Equal(t, "Animal", cls.Extends)
}
