package content

import (
	"bufio"
	"io"
	"strings"
)

type attr struct {
	name, value string
}

var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// xmlWriter emits markup with explicit nesting levels. Errors are sticky
// and reported by flush.
type xmlWriter struct {
	w      *bufio.Writer
	pretty bool
	err    error
}

func newXMLWriter(w io.Writer, pretty bool) *xmlWriter {
	return &xmlWriter{w: bufio.NewWriterSize(w, 64*1024), pretty: pretty}
}

func (x *xmlWriter) write(s string) {
	if x.err != nil {
		return
	}
	_, x.err = x.w.WriteString(s)
}

// indent starts a line at level. Compact output only breaks lines for the
// outermost levels.
func (x *xmlWriter) indent(level int) {
	if x.pretty {
		x.write("\n" + strings.Repeat("  ", level))
	} else if level <= 1 {
		x.write("\n")
	}
}

func (x *xmlWriter) attrs(attrs []attr) {
	for _, a := range attrs {
		x.write(" " + a.name + `="` + attrEscaper.Replace(a.value) + `"`)
	}
}

func (x *xmlWriter) openTag(name string, level int, attrs ...attr) {
	x.indent(level)
	x.write("<" + name)
	x.attrs(attrs)
	x.write(">")
}

func (x *xmlWriter) closeTag(name string, level int) {
	x.indent(level)
	x.write("</" + name + ">")
}

func (x *xmlWriter) emptyTag(name string, level int, attrs ...attr) {
	x.indent(level)
	x.write("<" + name)
	x.attrs(attrs)
	x.write("/>")
}

// inlineElement writes <name>text</name> with already encoded text.
func (x *xmlWriter) inlineElement(name string, level int, text string) {
	x.indent(level)
	x.write("<" + name + ">")
	x.write(text)
	x.write("</" + name + ">")
}

func (x *xmlWriter) declaration(standalone bool) {
	if standalone {
		x.write(`<?xml version="1.0" encoding="UTF-8" standalone="no"?>`)
		return
	}
	x.write(`<?xml version="1.0" encoding="UTF-8"?>`)
}

func (x *xmlWriter) flush() error {
	if x.err != nil {
		return x.err
	}
	x.err = x.w.Flush()
	return x.err
}
