package middleware

import "net/http"

// identityHeaders would disclose the server implementation.
var identityHeaders = []string{"Server", "X-Powered-By"}

// HideServerIdentity strips Server and X-Powered-By from every response,
// including those set by downstream handlers.
func HideServerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&identityStripper{ResponseWriter: w}, r)
	})
}

type identityStripper struct {
	http.ResponseWriter
	wroteHeader bool
}

func (s *identityStripper) strip() {
	if s.wroteHeader {
		return
	}
	s.wroteHeader = true
	h := s.ResponseWriter.Header()
	for _, name := range identityHeaders {
		h.Del(name)
	}
}

func (s *identityStripper) WriteHeader(code int) {
	s.strip()
	s.ResponseWriter.WriteHeader(code)
}

func (s *identityStripper) Write(b []byte) (int, error) {
	s.strip()
	return s.ResponseWriter.Write(b)
}

func (s *identityStripper) Flush() {
	s.strip()
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *identityStripper) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
