package dispatcher

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

// rawGet sends a bare HTTP/1.1 request and returns the response head and the
// undecoded body bytes.
func rawGet(t *testing.T, addr, path, accept string) (*http.Response, []byte) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("dispatcher:wire_test - dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	req := "GET " + path + " HTTP/1.1\r\nHost: test\r\nAccept: " + accept + "\r\nConnection: close\r\n\r\n"
	if _, err := io.WriteString(conn, req); err != nil {
		t.Fatalf("dispatcher:wire_test - write: %v", err)
	}

	br := bufio.NewReader(conn)
	var head strings.Builder
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("dispatcher:wire_test - read head: %v", err)
		}
		head.WriteString(line)
		if line == "\r\n" {
			break
		}
	}
	resp, err := http.ReadResponse(bufio.NewReader(strings.NewReader(head.String())), nil)
	if err != nil {
		t.Fatalf("dispatcher:wire_test - parse head: %v", err)
	}
	body, err := io.ReadAll(br)
	if err != nil {
		t.Fatalf("dispatcher:wire_test - read body: %v", err)
	}
	return resp, body
}

// dechunk decodes chunked framing by hand and returns the payload and the
// number of non-terminal chunks.
func dechunk(t *testing.T, raw []byte) (string, int) {
	t.Helper()
	var payload strings.Builder
	chunks := 0
	rest := string(raw)
	for {
		line, after, ok := strings.Cut(rest, "\r\n")
		if !ok {
			t.Fatalf("dispatcher:wire_test - missing chunk size line in %q", rest)
		}
		size, err := strconv.ParseInt(line, 16, 64)
		if err != nil {
			t.Fatalf("dispatcher:wire_test - bad chunk size %q: %v", line, err)
		}
		if size == 0 {
			if after != "\r\n" {
				t.Errorf("dispatcher:wire_test - unexpected trailer %q", after)
			}
			return payload.String(), chunks
		}
		if int64(len(after)) < size+2 || after[size:size+2] != "\r\n" {
			t.Fatalf("dispatcher:wire_test - malformed chunk of size %d", size)
		}
		payload.WriteString(after[:size])
		chunks++
		rest = after[size+2:]
	}
}

func TestWire_ChunkedMatchesPlainBody(t *testing.T) {
	d := newTestDispatcher(t, Options{})
	_ = d.Register("plain", newNums, nil)
	_ = d.Register("chunked", newNums, map[string]string{"Transfer-Encoding": "chunked"})

	srv := httptest.NewServer(d)
	defer srv.Close()
	addr := strings.TrimPrefix(srv.URL, "http://")

	for _, accept := range []string{"application/json", "application/ejson; boundary=LF", "application/bson"} {
		t.Run(accept, func(t *testing.T) {
			plainResp, plain := rawGet(t, addr, "/plain", accept)
			if plainResp.ContentLength != int64(len(plain)) {
				t.Errorf("dispatcher:wire_test - Content-Length = %d, body %d bytes", plainResp.ContentLength, len(plain))
			}

			chunkedResp, raw := rawGet(t, addr, "/chunked", accept)
			if len(chunkedResp.TransferEncoding) != 1 || chunkedResp.TransferEncoding[0] != "chunked" {
				t.Fatalf("dispatcher:wire_test - Transfer-Encoding = %v", chunkedResp.TransferEncoding)
			}
			payload, chunks := dechunk(t, raw)
			if payload != string(plain) {
				t.Errorf("dispatcher:wire_test - de-chunked payload %q != plain body %q", payload, plain)
			}
			if chunks < 2 {
				t.Errorf("dispatcher:wire_test - %d chunks, want one per write", chunks)
			}
			if chunkedResp.Header.Get("X-Header-1") != "v1" {
				t.Errorf("dispatcher:wire_test - X-Header-1 missing on chunked response")
			}
		})
	}
}

func TestWire_GoClientReadsChunkedStream(t *testing.T) {
	d := newTestDispatcher(t, Options{})
	_ = d.Register("chunked", newNums, map[string]string{"Transfer-Encoding": "chunked"})

	srv := httptest.NewServer(d)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/chunked")
	if err != nil {
		t.Fatalf("dispatcher:wire_test - GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if got := string(body); got != "[{\"num\":0},{\"num\":1}]\n" {
		t.Errorf("dispatcher:wire_test - body = %q", got)
	}
}
