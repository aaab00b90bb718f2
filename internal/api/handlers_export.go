package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/notetree/internal/content"
	"github.com/dgallion1/notetree/internal/decode"
	"github.com/dgallion1/notetree/internal/export"
	"github.com/dgallion1/notetree/internal/metrics"
	"github.com/dgallion1/notetree/internal/store"
)

var exportTypes = map[string]string{
	"md":   "text/markdown; charset=utf-8",
	"html": "text/html; charset=utf-8",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// handleExport renders a node, or with subtree=1 the node and all of its
// descendants, as Markdown, HTML or DOCX.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	ctype, ok := exportTypes[format]
	if !ok {
		jsonError(w, fmt.Sprintf("unsupported export format: %s", format), http.StatusBadRequest)
		return
	}
	node, ok := s.lookupNode(w, r)
	if !ok {
		return
	}
	subtree, _ := strconv.ParseBool(r.URL.Query().Get("subtree"))

	ctx := r.Context()
	sections, err := s.sections(ctx, node, subtree)
	if err != nil {
		s.decodeError(w, node.ID, err)
		return
	}

	opts := export.Options{PayloadURL: payloadURL}
	var buf bytes.Buffer
	switch format {
	case "md":
		err = export.Markdown(&buf, sections, opts)
	case "html":
		err = export.HTML(&buf, node.Name, sections, opts)
	case "docx":
		err = export.DOCX(&buf, sections, opts)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"node-%d.docx\"", node.ID))
	}
	if err != nil {
		w.Header().Del("Content-Disposition")
		jsonError(w, "export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.Write(buf.Bytes())
}

// sections builds the exported sections, logging descendants whose content
// could not be decoded.
func (s *Server) sections(ctx context.Context, root store.Node, subtree bool) ([]export.Section, error) {
	sections, failed, err := export.Build(ctx, s.doc.Index, s.doc.Decoder, root, subtree, s.cfg.DecodeConcurrency)
	if err != nil {
		return nil, err
	}
	for _, res := range failed {
		var derr *decode.Error
		if errors.As(res.Err, &derr) {
			metrics.DecodeErrors.WithLabelValues("export").Inc()
		}
		s.log.Warn("skipping node content in export", "node_id", res.ID, "error", res.Err)
	}
	return sections, nil
}

func payloadURL(loc content.Locator) string {
	u := fmt.Sprintf("/api/nodes/%d/payload?offset=%d", loc.NodeID, loc.Offset)
	if loc.Filename != "" {
		u += "&filename=" + url.QueryEscape(loc.Filename)
	}
	return u
}
