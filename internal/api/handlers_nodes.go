package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/notetree/internal/content"
	"github.com/dgallion1/notetree/internal/decode"
	"github.com/dgallion1/notetree/internal/metrics"
	"github.com/dgallion1/notetree/internal/store"
)

func (s *Server) handleMainNodes(w http.ResponseWriter, r *http.Request) {
	entries, err := s.doc.Index.MainNodes(r.Context())
	if err != nil {
		jsonError(w, "failed to list nodes: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeEntries(w, entries)
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	entries, err := s.doc.Index.Bookmarks(r.Context())
	if err != nil {
		jsonError(w, "failed to list bookmarks: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeEntries(w, entries)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	node, ok := s.lookupNode(w, r)
	if !ok {
		return
	}
	entry, err := s.doc.Index.Classify(r.Context(), node)
	if err != nil {
		jsonError(w, "failed to read node: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// handleChildren lists the node itself followed by its children.
func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	node, ok := s.lookupNode(w, r)
	if !ok {
		return
	}
	entries, err := s.doc.Index.Subnodes(r.Context(), node.ID)
	if err != nil {
		jsonError(w, "failed to list children: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeEntries(w, entries)
}

// handleParent lists the parent followed by its children, or the main
// nodes for a root.
func (s *Server) handleParent(w http.ResponseWriter, r *http.Request) {
	node, ok := s.lookupNode(w, r)
	if !ok {
		return
	}
	entries, err := s.doc.Index.ParentWithSiblings(r.Context(), node.ID)
	if err != nil {
		jsonError(w, "failed to list parent: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeEntries(w, entries)
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	node, ok := s.lookupNode(w, r)
	if !ok {
		return
	}
	path, err := s.doc.Index.Path(r.Context(), node.ID)
	if err != nil {
		jsonError(w, "failed to resolve path: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if path == nil {
		path = []store.Node{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"path": path})
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r)
	if !ok {
		return
	}
	blocks, err := s.doc.Decoder.Decode(r.Context(), id)
	if err != nil {
		s.decodeError(w, id, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"node_id": id,
		"blocks":  content.Tag(blocks),
	})
}

// handlePayload streams the stored bytes of an image or attachment.
func (s *Server) handlePayload(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r)
	if !ok {
		return
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		jsonError(w, "offset query parameter must be a non-negative integer", http.StatusBadRequest)
		return
	}
	filename := filepath.Base(r.URL.Query().Get("filename"))
	if filename == "." || filename == "/" {
		filename = ""
	}

	loc := content.Locator{NodeID: id, Offset: offset, Filename: filename}
	data, err := s.doc.Source.Payload(r.Context(), loc)
	switch {
	case errors.Is(err, store.ErrNodeNotFound), errors.Is(err, store.ErrPayloadNotFound):
		jsonError(w, "payload not found", http.StatusNotFound)
		return
	case errors.Is(err, store.ErrMalformedContent):
		metrics.DecodeErrors.WithLabelValues("payload").Inc()
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		jsonError(w, "failed to read payload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.Write(data)
}

// lookupNode resolves the {id} URL parameter, writing the error response
// when it does not name a node.
func (s *Server) lookupNode(w http.ResponseWriter, r *http.Request) (store.Node, bool) {
	id, ok := nodeID(w, r)
	if !ok {
		return store.Node{}, false
	}
	node, found, err := s.doc.Index.Lookup(r.Context(), id)
	if err != nil {
		jsonError(w, "failed to read node: "+err.Error(), http.StatusInternalServerError)
		return store.Node{}, false
	}
	if !found {
		jsonError(w, fmt.Sprintf("node %d not found", id), http.StatusNotFound)
		return store.Node{}, false
	}
	return node, true
}

func (s *Server) decodeError(w http.ResponseWriter, id int64, err error) {
	var derr *decode.Error
	switch {
	case errors.Is(err, store.ErrNodeNotFound):
		jsonError(w, fmt.Sprintf("node %d not found", id), http.StatusNotFound)
	case errors.As(err, &derr):
		metrics.DecodeErrors.WithLabelValues("content").Inc()
		s.log.Warn("undecodable node", "node_id", id, "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		jsonError(w, "failed to decode node: "+err.Error(), http.StatusInternalServerError)
	}
}

func nodeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "node id must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeEntries(w http.ResponseWriter, entries []store.Entry) {
	if entries == nil {
		entries = []store.Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"nodes": entries})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
