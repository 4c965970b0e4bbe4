package network

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/require"
)

type chunkRequest struct {
	Filename string
	Chunk    int
	Chunks   int
	Data     []byte
}

type finalizeCall struct {
	Filename string
	Chunks   int
	FileSize int64
	MD5      string
	Name     string
}

// fakePlatform mimics the upload and publish endpoints.
type fakePlatform struct {
	t      *testing.T
	server *httptest.Server

	mu           sync.Mutex
	sessions     int
	chunks       []chunkRequest
	finalizes    []finalizeCall
	manifests    []Manifest
	coverUploads int
	preuploads   int

	// failChunk returns the status and body of a failed chunk attempt, or 0 to accept it.
	failChunk func(filename string, chunk, attempt int) (int, string)
	// failPreupload returns a status to fail a negotiation attempt with, or 0.
	failPreupload func(attempt int) int
	finalizeBody  string
	coverStatus   int
	submitBody    string
	chunkAttempts map[string]int
}

func newFakePlatform(t *testing.T) *fakePlatform {
	p := &fakePlatform{
		t:             t,
		finalizeBody:  `{"OK":1}`,
		coverStatus:   http.StatusOK,
		submitBody:    `{"code":0,"message":"0","data":{"aid":170001,"bvid":"BV17x411w7KC"}}`,
		chunkAttempts: map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/preupload", p.handlePreupload)
	mux.HandleFunc("/upload/", p.handleChunk)
	mux.HandleFunc("/complete/", p.handleFinalize)
	mux.HandleFunc("/x/vu/client/cover/up", p.handleCover)
	mux.HandleFunc("/x/vu/client/add", p.handleSubmit)

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)

	return p
}

func (p *fakePlatform) client(t *testing.T, config ClientConfig) *Client {
	t.Helper()
	config.BaseURL = p.server.URL
	return NewClient(config, log.NewLogger())
}

func (p *fakePlatform) handlePreupload(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	attempt := p.preuploads
	p.preuploads++
	p.mu.Unlock()

	if p.failPreupload != nil {
		if status := p.failPreupload(attempt); status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("preupload unavailable"))
			return
		}
	}

	if cookie, err := r.Cookie(sidCookie); err != nil || cookie.Value == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.URL.Query().Get("profile") != uploadProfile || r.URL.Query().Get("access_key") == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.sessions++
	id := p.sessions
	p.mu.Unlock()

	_, _ = fmt.Fprintf(w, `{"url":"%s/upload/%d","complete":"%s/complete/%d","filename":"n%d"}`,
		p.server.URL, id, p.server.URL, id, id)
}

func (p *fakePlatform) handleChunk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	cookie, err := r.Cookie("PHPSESSID")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	chunk, _ := strconv.Atoi(r.FormValue("chunk"))
	chunks, _ := strconv.Atoi(r.FormValue("chunks"))
	file, _, err := r.FormFile("file")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	sum := md5.Sum(data)
	if hex.EncodeToString(sum[:]) != r.FormValue("md5") {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	key := fmt.Sprintf("%s/%d", cookie.Value, chunk)
	p.mu.Lock()
	attempt := p.chunkAttempts[key]
	p.chunkAttempts[key] = attempt + 1
	p.mu.Unlock()

	if p.failChunk != nil {
		if status, body := p.failChunk(cookie.Value, chunk, attempt); status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
	}

	p.mu.Lock()
	p.chunks = append(p.chunks, chunkRequest{Filename: cookie.Value, Chunk: chunk, Chunks: chunks, Data: data})
	p.mu.Unlock()

	_, _ = w.Write([]byte(`{"OK":1,"info":"Successful."}`))
}

func (p *fakePlatform) handleFinalize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	chunks, _ := strconv.Atoi(r.PostForm.Get("chunks"))
	size, _ := strconv.ParseInt(r.PostForm.Get("filesize"), 10, 64)
	id := strings.TrimPrefix(r.URL.Path, "/complete/")

	p.mu.Lock()
	p.finalizes = append(p.finalizes, finalizeCall{
		Filename: "n" + id,
		Chunks:   chunks,
		FileSize: size,
		MD5:      r.PostForm.Get("md5"),
		Name:     r.PostForm.Get("name"),
	})
	body := p.finalizeBody
	p.mu.Unlock()

	_, _ = w.Write([]byte(body))
}

func (p *fakePlatform) handleCover(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.coverUploads++
	status := p.coverStatus
	p.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	if r.URL.Query().Get("sign") == "" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	_, _ = w.Write([]byte(`{"code":0,"data":{"url":"https://img.example.com/cover.jpg"}}`))
}

func (p *fakePlatform) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var manifest Manifest
	if err := json.NewDecoder(r.Body).Decode(&manifest); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.manifests = append(p.manifests, manifest)
	body := p.submitBody
	p.mu.Unlock()

	_, _ = w.Write([]byte(body))
}

// chunksOf returns the accepted chunk indexes of a server file in arrival order.
func (p *fakePlatform) chunksOf(filename string) []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var indexes []int
	for _, c := range p.chunks {
		if c.Filename == filename {
			indexes = append(indexes, c.Chunk)
		}
	}
	return indexes
}

func (p *fakePlatform) attempts(filename string, chunk int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chunkAttempts[fmt.Sprintf("%s/%d", filename, chunk)]
}

func (p *fakePlatform) preuploadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.preuploads
}

func (p *fakePlatform) manifestCalls() []Manifest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Manifest(nil), p.manifests...)
}

func (p *fakePlatform) coverCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coverUploads
}

func (p *fakePlatform) finalizeCalls() []finalizeCall {
	p.mu.Lock()
	defer p.mu.Unlock()

	calls := append([]finalizeCall(nil), p.finalizes...)
	sort.Slice(calls, func(i, j int) bool { return calls[i].Filename < calls[j].Filename })
	return calls
}

type recordingSink struct {
	mu     sync.Mutex
	values map[string][]int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{values: map[string][]int{}}
}

func (s *recordingSink) Set(key string, done int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append(s.values[key], done)
}

func (s *recordingSink) get(key string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

func testCredentials() Credentials {
	return Credentials{AccessToken: "token", SessionID: "sid-value", MemberID: 42}
}

func writeTestFile(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))

	return path, data
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
