// Package org loads org files into agenda items and writes accepted
// reschedules back into their source text. Only the pieces the agenda
// needs are parsed: heading level, todo keyword, title, tags, the first
// active timestamp, and DEADLINE entries with ancestor inheritance.
package org

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"orgenda/internal/agenda"
	appLog "orgenda/internal/log"
	"orgenda/internal/orgdate"
)

var (
	reHeading = regexp.MustCompile(`^(\*+)\s+(.*)$`)
	reTags    = regexp.MustCompile(`\s+(:(?:[A-Za-z0-9_@]+:)+)\s*$`)
)

const deadlinePrefix = "DEADLINE:"

// Document is one loaded org file.
type Document struct {
	Path     string
	headings []*agenda.Item
	lines    []string

	// dateLine maps an item to the line its active timestamp sits on,
	// for the write-back of accepted reschedules.
	dateLine map[*agenda.Item]int
}

// AllHeadings returns the document's items in source order.
func (d *Document) AllHeadings() []*agenda.Item { return d.headings }

// Name returns the document's base name without the .org suffix, used
// as its buffer/grouping key.
func (d *Document) Name() string {
	base := filepath.Base(d.Path)
	return strings.TrimSuffix(base, ".org")
}

// Loader scans org files. TodoStates lists every known todo keyword
// (active and done); a heading's first word is only treated as a state
// when it is in this list.
type Loader struct {
	TodoStates []string
}

// Load reads and scans a single org file.
func (l *Loader) Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc := &Document{
		Path:     path,
		dateLine: make(map[*agenda.Item]int),
	}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		doc.lines = append(doc.lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	l.scan(doc)
	return doc, nil
}

// LoadAll resolves the given glob patterns and loads every match.
// Files that fail to load are logged and skipped.
func (l *Loader) LoadAll(patterns []string) ([]*Document, error) {
	var paths []string
	for _, p := range patterns {
		matches, err := filepath.Glob(expandHome(p))
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", p, err)
		}
		paths = append(paths, matches...)
	}

	docs := make([]*Document, 0, len(paths))
	for _, path := range paths {
		doc, err := l.Load(path)
		if err != nil {
			appLog.Error("org load failed", err, "path", path)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// scan walks the lines once, building one item per heading. A stack of
// open ancestors provides deadline inheritance: an item's deadline is
// its own DEADLINE entry when present, otherwise the nearest ancestor's.
func (l *Loader) scan(doc *Document) {
	type frame struct {
		level    int
		item     *agenda.Item
		deadline orgdate.Value
	}
	var stack []frame

	closeTo := func(level int) {
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
	}

	for lineNo, line := range doc.lines {
		if m := reHeading.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			closeTo(level)

			it := &agenda.Item{
				Source: agenda.Location{File: doc.Path, Line: lineNo + 1},
			}
			rest := m[2]
			if word, tail, ok := strings.Cut(rest, " "); ok && l.isTodoState(word) {
				it.Todo, rest = word, tail
			} else if !ok && l.isTodoState(rest) {
				it.Todo, rest = rest, ""
			}
			if tm := reTags.FindStringSubmatch(rest); tm != nil {
				it.Tags = splitTags(tm[1])
				rest = rest[:len(rest)-len(tm[0])]
			}
			// The heading line itself may carry the active timestamp.
			if v, ok := firstActive(rest); ok {
				it.Date = v
				doc.dateLine[it] = lineNo
				rest = stripValues(rest)
			}
			it.Title = strings.TrimSpace(rest)

			var inherited orgdate.Value
			if len(stack) > 0 {
				inherited = stack[len(stack)-1].deadline
			}
			it.Deadline = inherited
			stack = append(stack, frame{level: level, item: it, deadline: inherited})
			doc.headings = append(doc.headings, it)
			continue
		}

		if len(stack) == 0 {
			continue
		}
		top := &stack[len(stack)-1]
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, deadlinePrefix); ok {
			if v, ok := orgdate.First(rest); ok {
				top.deadline = v
				top.item.Deadline = v
			}
			continue
		}
		if top.item.Date == nil {
			if v, ok := firstActive(line); ok {
				top.item.Date = v
				doc.dateLine[top.item] = lineNo
			}
		}
	}
}

func (l *Loader) isTodoState(word string) bool {
	for _, s := range l.TodoStates {
		if word == s {
			return true
		}
	}
	return false
}

func splitTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ':' })
}

// firstActive returns the first active calendar value in text.
func firstActive(text string) (orgdate.Value, bool) {
	for _, v := range orgdate.Scan(text) {
		if v.Active() {
			return v, true
		}
	}
	return nil, false
}

// stripValues removes every calendar value token from text.
func stripValues(text string) string {
	for _, v := range orgdate.Scan(text) {
		text = strings.Replace(text, v.String(), "", 1)
	}
	return strings.Join(strings.Fields(text), " ")
}

// ApplyReschedules rewrites each item's pending rescheduled date into
// the document text and saves the file. Items whose dates were applied
// have their mark cleared and the new date promoted to the active one.
// Returns the number of items written.
func (d *Document) ApplyReschedules() (int, error) {
	applied := 0
	for _, it := range d.headings {
		if it.Rescheduled == nil || it.Date == nil {
			continue
		}
		lineNo, ok := d.dateLine[it]
		if !ok {
			continue
		}
		oldText, newText := it.Date.String(), it.Rescheduled.String()
		if !strings.Contains(d.lines[lineNo], oldText) {
			appLog.Info("reschedule write-back skipped",
				"path", d.Path, "line", lineNo+1, "value", oldText)
			continue
		}
		d.lines[lineNo] = strings.Replace(d.lines[lineNo], oldText, newText, 1)
		it.Date = it.Rescheduled
		it.Rescheduled = nil
		applied++
	}
	if applied == 0 {
		return 0, nil
	}
	out := strings.Join(d.lines, "\n") + "\n"
	if err := os.WriteFile(d.Path, []byte(out), 0o644); err != nil {
		return applied, fmt.Errorf("write %s: %w", d.Path, err)
	}
	return applied, nil
}
