package server

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/matzehuels/storyflow/pkg/errors"
	pkgio "github.com/matzehuels/storyflow/pkg/io"
	"github.com/matzehuels/storyflow/pkg/pipeline"
	"github.com/matzehuels/storyflow/pkg/render"
	"github.com/matzehuels/storyflow/pkg/simulate"
	"github.com/matzehuels/storyflow/pkg/story"
)

// =============================================================================
// Analysis
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "ws_clients": s.hub.Len()})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	st, opts, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	res, hit, err := s.runner.Validate(r.Context(), st, opts)
	s.respond(w, r, res, hit, err)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	st, opts, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	res, hit, err := s.runner.Analyze(r.Context(), st, opts)
	s.respond(w, r, res, hit, err)
}

func (s *Server) handleReachability(w http.ResponseWriter, r *http.Request) {
	st, opts, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	res, hit, err := s.runner.Reachability(r.Context(), st, opts)
	s.respond(w, r, res, hit, err)
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	st, opts, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	res, hit, err := s.runner.Cycles(r.Context(), st, opts)
	s.respond(w, r, res, hit, err)
}

func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	st, opts, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	res, hit, err := s.runner.Paths(r.Context(), st, opts)
	s.respond(w, r, res, hit, err)
}

// respond writes v, marking cache hits with the X-Cache header.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, hit bool, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Cache", cacheHeader(hit))
	writeJSON(w, http.StatusOK, v)
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

// =============================================================================
// Preview
// =============================================================================

type simulateResponse struct {
	Entry        string                `json:"entry,omitempty"`
	Start        simulate.State        `json:"start_state"`
	Result       *simulate.PathResult  `json:"result,omitempty"`
	Playthroughs []simulate.PathResult `json:"playthroughs,omitempty"`
}

// handleSimulate replays ?path=a,b,c, or every complete path when no path
// is given. ?besitos= and ?role= override the configured preview state.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	st, opts, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	state, err := s.previewState(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := simulateResponse{Start: state}
	if raw := r.URL.Query().Get("path"); raw != "" {
		path := strings.Split(raw, ",")
		for i, id := range path {
			path[i] = strings.TrimSpace(id)
			if err := apperrors.ValidateFragmentID(path[i]); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		res := simulate.SimulatePath(st.Fragments, path, state)
		resp.Result = &res
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp.Entry, _ = story.EntryID(st.Fragments, st.Entry)
	if opts.Entry != "" {
		resp.Entry, _ = story.EntryID(st.Fragments, opts.Entry)
	}
	resp.Playthroughs = simulate.Playthroughs(st.Fragments, state, opts.FlowOptions(st)...)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) previewState(r *http.Request) (simulate.State, error) {
	state := s.cfg.Preview
	q := r.URL.Query()
	if v := q.Get("besitos"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return state, apperrors.New(apperrors.ErrCodeInvalidInput, "besitos must be a non-negative integer, got %q", v)
		}
		state.Besitos = n
	}
	if v := q.Get("role"); v != "" {
		role := story.Role(strings.ToLower(v))
		if !role.Known() {
			return state, apperrors.New(apperrors.ErrCodeInvalidInput, "unknown role %q (want normal, vip or premium)", v)
		}
		state.Role = role
	}
	return state, nil
}

// =============================================================================
// Render
// =============================================================================

var contentTypes = map[string]string{
	render.FormatSVG: "image/svg+xml",
	render.FormatPNG: "image/png",
	render.FormatPDF: "application/pdf",
	render.FormatDOT: "text/vnd.graphviz; charset=utf-8",
}

// handleRender renders the story graph. ?output= selects one of svg (the
// default), png, pdf or dot; ?format= still names the request encoding.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	st, opts, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	format := strings.ToLower(q.Get("output"))
	if format == "" {
		format = render.FormatSVG
	}
	opts.Formats = []string{format}
	opts.Direction = q.Get("direction")
	opts.Detailed = boolParam(q.Get("detailed"), false)
	opts.Highlight = boolParam(q.Get("highlight"), true)
	if v := q.Get("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.writeError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid scale %q", v))
			return
		}
		opts.Scale = f
	}

	out, hit, err := s.runner.Render(r.Context(), st, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Cache", cacheHeader(hit))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out[format])
}

// =============================================================================
// Stories
// =============================================================================

type storyResponse struct {
	Path  string       `json:"path"`
	Hash  string       `json:"hash"`
	Story *story.Story `json:"story"`
}

// handleGetStory loads a story file below the configured stories directory.
func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.StoriesDir == "" {
		s.writeError(w, r, apperrors.New(apperrors.ErrCodeNotFound, "no stories directory configured"))
		return
	}
	rel := chi.URLParam(r, "*")
	if err := apperrors.ValidatePath(rel); err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.runner.Load(r.Context(), filepath.Join(s.cfg.StoriesDir, filepath.FromSlash(rel)))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, storyResponse{Path: rel, Hash: pipeline.StoryHash(st), Story: st})
}

// =============================================================================
// Request decoding
// =============================================================================

// decodeRequest reads the story body and the analysis query parameters.
// On failure it writes the error response and returns false.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (*story.Story, pipeline.Options, bool) {
	opts, err := analysisOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return nil, opts, false
	}
	format, err := requestFormat(r)
	if err != nil {
		s.writeError(w, r, err)
		return nil, opts, false
	}
	st, err := s.runner.Decode(r.Context(), "request", r.Body, format)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = apperrors.New(apperrors.ErrCodeInvalidInput, "request body exceeds %d bytes", tooLarge.Limit)
		}
		s.writeError(w, r, err)
		return nil, opts, false
	}
	opts.Logger = s.logger.With("request_id", requestID(r.Context()))
	return st, opts, true
}

// requestFormat picks the story encoding from ?format= or Content-Type,
// defaulting to JSON.
func requestFormat(r *http.Request) (pkgio.Format, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return pkgio.ParseFormat(f)
	}
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return pkgio.FormatJSON, nil
	}
	switch mt {
	case "application/toml":
		return pkgio.FormatTOML, nil
	case "application/yaml", "application/x-yaml", "text/yaml":
		return pkgio.FormatYAML, nil
	default:
		return pkgio.FormatJSON, nil
	}
}

func analysisOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Entry:        q.Get("entry"),
		DedupeCycles: boolParam(q.Get("dedupe_cycles"), false),
		Refresh:      boolParam(q.Get("refresh"), false),
	}
	if opts.Entry != "" {
		if err := apperrors.ValidateFragmentID(opts.Entry); err != nil {
			return opts, err
		}
	}
	for name, dst := range map[string]*int{"max_paths": &opts.MaxPaths, "max_cycles": &opts.MaxCycles} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, apperrors.New(apperrors.ErrCodeInvalidInput, "%s must be a non-negative integer, got %q", name, v)
		}
		*dst = n
	}
	return opts, nil
}

func boolParam(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
