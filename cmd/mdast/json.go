package main

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"pkt.systems/mdast"
	"pkt.systems/mdast/ast"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonDocument struct {
	FrontMatter *jsonFrontMatter `json:"frontMatter,omitempty"`
	Diagnostics []jsonDiagnostic `json:"diagnostics,omitempty"`
	Tree        *jsonNode        `json:"tree"`
}

type jsonFrontMatter struct {
	Format string         `json:"format"`
	Data   map[string]any `json:"data,omitempty"`
}

type jsonDiagnostic struct {
	Kind    string `json:"kind"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

type jsonNode struct {
	Kind       string      `json:"kind"`
	Line       int         `json:"line,omitempty"`
	Level      int         `json:"level,omitempty"`
	Start      int         `json:"start,omitempty"`
	Tight      bool        `json:"tight,omitempty"`
	Marker     string      `json:"marker,omitempty"`
	Checked    bool        `json:"checked,omitempty"`
	Literal    string      `json:"literal,omitempty"`
	Info       string      `json:"info,omitempty"`
	Language   string      `json:"language,omitempty"`
	Fenced     bool        `json:"fenced,omitempty"`
	URL        string      `json:"url,omitempty"`
	Title      string      `json:"title,omitempty"`
	Alt        string      `json:"alt,omitempty"`
	Identifier string      `json:"identifier,omitempty"`
	Label      string      `json:"label,omitempty"`
	Name       string      `json:"name,omitempty"`
	Autolink   bool        `json:"autolink,omitempty"`
	Header     bool        `json:"header,omitempty"`
	Align      string      `json:"align,omitempty"`
	Hard       bool        `json:"hard,omitempty"`
	Image      bool        `json:"image,omitempty"`
	Index      int         `json:"index,omitempty"`
	Children   []*jsonNode `json:"children,omitempty"`
}

func toJSONNode(tree *ast.Tree, id ast.NodeID) *jsonNode {
	n := tree.Node(id)
	out := &jsonNode{
		Kind: n.Kind.String(), Line: n.Line, Level: n.Level, Start: n.Start,
		Tight: n.Tight, Marker: n.Marker, Checked: n.Checked, Literal: n.Literal,
		Info: n.Info, Language: n.Language, Fenced: n.Fenced, URL: n.URL,
		Title: n.Title, Alt: n.Alt, Identifier: n.Identifier, Label: n.Label,
		Name: n.Name, Autolink: n.Autolink, Header: n.Header, Hard: n.Hard,
		Image: n.Image, Index: n.Index,
	}
	if n.Align != ast.AlignNone {
		out.Align = n.Align.String()
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, toJSONNode(tree, c))
	}
	return out
}

func writeJSON(w io.Writer, doc *mdast.Document) error {
	out := jsonDocument{Tree: toJSONNode(doc.Tree, doc.Tree.Root())}
	if fm := doc.FrontMatter; fm != nil {
		out.FrontMatter = &jsonFrontMatter{Format: string(fm.Format), Data: fm.Data}
	}
	for _, d := range doc.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, jsonDiagnostic{Kind: d.Kind.String(), Line: d.Line, Message: d.Message})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
