package manifest

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/tidwall/jsonc"

	"github.com/ecopia-map/cesium_tile_optimizer/tools"
)

// Rewrite returns a copy of node where every occurrence of stale inside any string is
// replaced, ignoring case. Object keys and their order are kept, other scalars pass through
// unchanged.
func Rewrite(node Node, stale, replacement string) Node {
	out, _ := newRewriter(map[string]string{stale: replacement}, nil).rewrite(node)
	return out
}

// RewriteAll applies every stale to replacement pair, in a stable order.
func RewriteAll(node Node, replacements map[string]string) (Node, bool) {
	return newRewriter(replacements, nil).rewrite(node)
}

type replacement struct {
	stale *regexp.Regexp
	with  string
}

type rewriter struct {
	replacements []replacement
	keep         func(value string) bool // strings it accepts are never rewritten
}

func newRewriter(replacements map[string]string, keep func(value string) bool) *rewriter {
	stales := make([]string, 0, len(replacements))
	for stale := range replacements {
		if stale != "" {
			stales = append(stales, stale)
		}
	}
	sort.Strings(stales)

	r := &rewriter{keep: keep}
	for _, stale := range stales {
		r.replacements = append(r.replacements, replacement{
			stale: regexp.MustCompile("(?i)" + regexp.QuoteMeta(stale)),
			with:  replacements[stale],
		})
	}
	return r
}

func (r *rewriter) rewrite(node Node) (Node, bool) {
	switch v := node.(type) {
	case string:
		if r.keep != nil && r.keep(v) {
			return v, false
		}
		out := v
		for _, rep := range r.replacements {
			out = rep.stale.ReplaceAllLiteralString(out, rep.with)
		}
		return out, out != v
	case []Node:
		items := make([]Node, len(v))
		changed := false
		for i, item := range v {
			var itemChanged bool
			items[i], itemChanged = r.rewrite(item)
			changed = changed || itemChanged
		}
		return items, changed
	case *Object:
		obj := NewObject()
		changed := false
		for _, m := range v.members {
			value, valueChanged := r.rewrite(m.Value)
			obj.Set(m.Key, value)
			changed = changed || valueChanged
		}
		return obj, changed
	}
	return node, false
}

// ReferencedPath resolves a reference found in the manifest at manifestPath to a file path.
// Query and fragment are dropped, relative references are taken from the manifest folder.
func ReferencedPath(manifestPath, ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}
	ref = filepath.FromSlash(ref)
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(filepath.Dir(manifestPath), ref)
}

// ReadFile parses a manifest. Comments and trailing commas are tolerated.
func ReadFile(path string) (Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	node, err := Parse(jsonc.ToJSON(data))
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return node, nil
}

// RewriteFile rewrites the manifest at path and reports whether it changed. References for
// which keep returns true stay as they are, keep may be nil. Manifests without stale
// references are left untouched on disk.
func RewriteFile(path string, replacements map[string]string, keep func(ref string) bool) (bool, error) {
	node, err := ReadFile(path)
	if err != nil {
		return false, err
	}

	rewritten, changed := newRewriter(replacements, keep).rewrite(node)
	if !changed {
		glog.V(2).Infof("manifest %s has no stale references", path)
		return false, nil
	}

	data, err := Marshal(rewritten)
	if err != nil {
		return false, err
	}
	if err := tools.WriteFileAtomic(path, data); err != nil {
		return false, err
	}
	return true, nil
}
