package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/calebdws/inkwell/internal/database"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	staticDir := filepath.Join(dir, "static")
	if err := os.MkdirAll(filepath.Join(staticDir, "images"), 0o755); err != nil {
		t.Fatalf("create image dir: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, staticDir, logger)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, staticDir
}

// newClient returns a cookie-carrying client that does not follow redirects,
// so tests can assert on 303s directly.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, c *http.Client, target string, form map[string]string) *http.Response {
	t.Helper()
	values := make(url.Values, len(form))
	for k, v := range form {
		values.Set(k, v)
	}
	resp, err := c.PostForm(target, values)
	if err != nil {
		t.Fatalf("POST %s: %v", target, err)
	}
	return resp
}

func getBody(t *testing.T, c *http.Client, target string) (int, string) {
	t.Helper()
	resp, err := c.Get(target)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func register(t *testing.T, c *http.Client, base, username, email string) {
	t.Helper()
	resp := postForm(t, c, base+"/register", map[string]string{
		"username":  username,
		"email":     email,
		"password1": "password123",
		"password2": "password123",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("register %s: status = %d, want %d", username, resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != "/home" {
		t.Fatalf("register %s: Location = %q, want /home", username, loc)
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := newClient(t)

	register(t, alice, ts.URL, "alice", "alice@example.com")

	// Session works.
	status, body := getBody(t, alice, ts.URL+"/home")
	if status != http.StatusOK {
		t.Fatalf("home status = %d, want 200", status)
	}
	if !strings.Contains(body, "Logout") {
		t.Error("expected logged-in nav on /home")
	}

	// Logout kills the session.
	resp := postForm(t, alice, ts.URL+"/logout", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("logout status = %d, want 303", resp.StatusCode)
	}
	status, _ = getBody(t, alice, ts.URL+"/home")
	if status != http.StatusSeeOther {
		t.Errorf("post-logout home status = %d, want 303 to login", status)
	}

	// Login with wrong password is rejected.
	resp = postForm(t, alice, ts.URL+"/login", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "Incorrect password, try again") {
		t.Error("expected incorrect-password message")
	}

	// Login with the right password works.
	resp = postForm(t, alice, ts.URL+"/login", map[string]string{
		"email": "alice@example.com", "password": "password123",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login status = %d, want 303", resp.StatusCode)
	}
	status, _ = getBody(t, alice, ts.URL+"/home")
	if status != http.StatusOK {
		t.Errorf("home after login = %d, want 200", status)
	}
}

func TestRegisterValidation(t *testing.T) {
	ts, _ := newTestServer(t)
	c := newClient(t)

	register(t, c, ts.URL, "alice", "alice@example.com")

	cases := []struct {
		form map[string]string
		want string
	}{
		{map[string]string{"username": "bob", "email": "alice@example.com", "password1": "password123", "password2": "password123"}, "Email already exists"},
		{map[string]string{"username": "alice", "email": "bob@example.com", "password1": "password123", "password2": "password123"}, "Username already exists"},
		{map[string]string{"username": "bo", "email": "bob@example.com", "password1": "password123", "password2": "password123"}, "Username must be greater than 2 characters"},
		{map[string]string{"username": "bob", "email": "b@", "password1": "password123", "password2": "password123"}, "Email must be greater than 3 characters"},
		{map[string]string{"username": "bob", "email": "bob@example.com", "password1": "password123", "password2": "different"}, "Passwords don"},
		{map[string]string{"username": "bob", "email": "bob@example.com", "password1": "short", "password2": "short"}, "Password must be at least 7 characters"},
	}
	for _, tc := range cases {
		resp := postForm(t, newClient(t), ts.URL+"/register", tc.form)
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if !strings.Contains(string(b), tc.want) {
			t.Errorf("register %v: expected %q in response", tc.form, tc.want)
		}
	}
}

func TestPostLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := newClient(t)
	register(t, alice, ts.URL, "alice", "alice@example.com")

	// Create.
	resp := postForm(t, alice, ts.URL+"/post/new", map[string]string{
		"title": "Hello", "content": "World",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/home" {
		t.Fatalf("create post: status = %d, Location = %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	// Feed shows it, owned by alice.
	status, body := getBody(t, alice, ts.URL+"/home")
	if status != http.StatusOK {
		t.Fatalf("home status = %d", status)
	}
	for _, want := range []string{"Hello", "World", "alice"} {
		if !strings.Contains(body, want) {
			t.Errorf("home missing %q", want)
		}
	}

	postID := findPostID(t, body)

	// Public read, no session needed.
	status, body = getBody(t, newClient(t), ts.URL+"/post/"+postID)
	if status != http.StatusOK {
		t.Fatalf("public post view = %d, want 200", status)
	}
	if !strings.Contains(body, "Hello") {
		t.Error("post view missing title")
	}

	// Missing post is a 404.
	status, _ = getBody(t, alice, ts.URL+"/post/99999")
	if status != http.StatusNotFound {
		t.Errorf("missing post = %d, want 404", status)
	}

	// Empty fields rejected.
	resp = postForm(t, alice, ts.URL+"/post/new", map[string]string{"title": "", "content": "x"})
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "Title is too short") {
		t.Error("expected title rejection")
	}
	resp = postForm(t, alice, ts.URL+"/post/new", map[string]string{"title": "x", "content": ""})
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "Content is too short") {
		t.Error("expected content rejection")
	}

	// Update by the author.
	resp = postForm(t, alice, ts.URL+"/post/"+postID+"/update", map[string]string{
		"title": "Hello v2", "content": "World v2",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/post/"+postID {
		t.Fatalf("update: status = %d, Location = %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	_, body = getBody(t, alice, ts.URL+"/post/"+postID)
	if !strings.Contains(body, "Hello v2") {
		t.Error("expected updated title")
	}

	// Delete by the author.
	resp = postForm(t, alice, ts.URL+"/post/"+postID+"/delete", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("delete: status = %d, want 303", resp.StatusCode)
	}
	status, _ = getBody(t, alice, ts.URL+"/post/"+postID)
	if status != http.StatusNotFound {
		t.Errorf("deleted post = %d, want 404", status)
	}
}

func TestPostOwnership(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := newClient(t)
	register(t, alice, ts.URL, "alice", "alice@example.com")
	resp := postForm(t, alice, ts.URL+"/post/new", map[string]string{
		"title": "Alice's post", "content": "hands off",
	})
	resp.Body.Close()
	_, body := getBody(t, alice, ts.URL+"/home")
	postID := findPostID(t, body)

	bob := newClient(t)
	register(t, bob, ts.URL, "bob", "bob@example.com")

	// Non-author gets 403 on every mutating route.
	status, _ := getBody(t, bob, ts.URL+"/post/"+postID+"/update")
	if status != http.StatusForbidden {
		t.Errorf("edit form = %d, want 403", status)
	}
	resp = postForm(t, bob, ts.URL+"/post/"+postID+"/update", map[string]string{
		"title": "hijacked", "content": "by bob",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("update = %d, want 403", resp.StatusCode)
	}
	resp = postForm(t, bob, ts.URL+"/post/"+postID+"/delete", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("delete = %d, want 403", resp.StatusCode)
	}

	// Post is untouched.
	_, body = getBody(t, alice, ts.URL+"/post/"+postID)
	if !strings.Contains(body, "hands off") || strings.Contains(body, "hijacked") {
		t.Error("post content changed by non-author")
	}
}

func TestNotes(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := newClient(t)
	register(t, alice, ts.URL, "alice", "alice@example.com")

	// Empty note rejected, nothing stored.
	resp := postForm(t, alice, ts.URL+"/notes", map[string]string{"note": ""})
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "Note is too short") {
		t.Error("expected empty-note rejection")
	}

	// Create renders the same view with the new note.
	resp = postForm(t, alice, ts.URL+"/notes", map[string]string{"note": "remember the milk"})
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create note = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(b), "Note added") || !strings.Contains(string(b), "remember the milk") {
		t.Error("expected success message and note body")
	}
}

func TestDeleteNoteOwnership(t *testing.T) {
	ts, _ := newTestServer(t)

	bob := newClient(t)
	register(t, bob, ts.URL, "bob", "bob@example.com")
	resp := postForm(t, bob, ts.URL+"/notes", map[string]string{"note": "bobs secret"})
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	noteID := findNoteID(t, string(b))

	alice := newClient(t)
	register(t, alice, ts.URL, "alice", "alice@example.com")

	// Alice tries to delete bob's note: empty ack, note survives.
	body := deleteNote(t, alice, ts.URL, noteID)
	if body != "{}" {
		t.Errorf("delete-note response = %q, want {}", body)
	}
	_, notesPage := getBody(t, bob, ts.URL+"/notes")
	if !strings.Contains(notesPage, "bobs secret") {
		t.Error("note deleted by non-owner")
	}

	// Bob deletes his own note.
	if body := deleteNote(t, bob, ts.URL, noteID); body != "{}" {
		t.Errorf("delete-note response = %q, want {}", body)
	}
	_, notesPage = getBody(t, bob, ts.URL+"/notes")
	if strings.Contains(notesPage, "bobs secret") {
		t.Error("note still present after owner delete")
	}

	// Unauthenticated callers never reach the handler.
	anon := newClient(t)
	payload, _ := json.Marshal(map[string]int64{"noteId": noteID})
	resp, err := anon.Post(ts.URL+"/delete-note", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("anon delete-note: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("anon delete-note = %d, want 303 to login", resp.StatusCode)
	}
}

func TestHomePagination(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := newClient(t)
	register(t, alice, ts.URL, "alice", "alice@example.com")

	for i := 1; i <= 7; i++ {
		resp := postForm(t, alice, ts.URL+"/post/new", map[string]string{
			"title": "Post number " + strconv.Itoa(i), "content": "body",
		})
		resp.Body.Close()
	}

	_, page1 := getBody(t, alice, ts.URL+"/home")
	if !strings.Contains(page1, "Post number 7") || strings.Contains(page1, "Post number 2") {
		t.Error("page 1 should hold the newest five posts")
	}
	if !strings.Contains(page1, "Page 1 of 2") {
		t.Error("expected pagination controls")
	}

	_, page2 := getBody(t, alice, ts.URL+"/home?page=2")
	if !strings.Contains(page2, "Post number 1") || strings.Contains(page2, "Post number 3") {
		t.Error("page 2 should hold the oldest two posts")
	}

	// Bad page params fall back to page 1.
	status, junk := getBody(t, alice, ts.URL+"/home?page=banana")
	if status != http.StatusOK || !strings.Contains(junk, "Post number 7") {
		t.Error("invalid page param should render page 1")
	}
}

func TestUserFeed(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := newClient(t)
	register(t, alice, ts.URL, "alice", "alice@example.com")
	bob := newClient(t)
	register(t, bob, ts.URL, "bob", "bob@example.com")

	resp := postForm(t, alice, ts.URL+"/post/new", map[string]string{"title": "From alice", "content": "a"})
	resp.Body.Close()
	resp = postForm(t, bob, ts.URL+"/post/new", map[string]string{"title": "From bob", "content": "b"})
	resp.Body.Close()

	status, body := getBody(t, bob, ts.URL+"/user/alice")
	if status != http.StatusOK {
		t.Fatalf("user feed = %d, want 200", status)
	}
	if !strings.Contains(body, "From alice") || strings.Contains(body, "From bob") {
		t.Error("user feed should hold only alice's posts")
	}

	status, _ = getBody(t, bob, ts.URL+"/user/nobody")
	if status != http.StatusNotFound {
		t.Errorf("unknown author = %d, want 404", status)
	}

	// Viewer must be authenticated.
	status, _ = getBody(t, newClient(t), ts.URL+"/user/alice")
	if status != http.StatusSeeOther {
		t.Errorf("anon user feed = %d, want 303 to login", status)
	}
}

func TestAccountUpdate(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := newClient(t)
	register(t, alice, ts.URL, "alice", "alice@example.com")
	bob := newClient(t)
	register(t, bob, ts.URL, "bob", "bob@example.com")

	// Nothing submitted.
	resp := postForm(t, alice, ts.URL+"/account", map[string]string{"username": "", "email": ""})
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "Information has not been changed") {
		t.Error("expected nothing-changed message")
	}

	// Taken username and short email both reported in one response.
	resp = postForm(t, alice, ts.URL+"/account", map[string]string{"username": "bob", "email": "a@"})
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "Username already exists") {
		t.Error("expected duplicate-username message")
	}
	if !strings.Contains(string(b), "Email must be greater than 3 characters") {
		t.Error("expected short-email message")
	}

	// Short username rejected.
	resp = postForm(t, alice, ts.URL+"/account", map[string]string{"username": "al", "email": ""})
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "Username must be greater than 2 characters") {
		t.Error("expected short-username message")
	}

	// Valid change commits and redirects back.
	resp = postForm(t, alice, ts.URL+"/account", map[string]string{"username": "alicia", "email": ""})
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/account" {
		t.Fatalf("account update: status = %d, Location = %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	status, body := getBody(t, alice, ts.URL+"/account")
	if status != http.StatusOK {
		t.Fatalf("account page = %d", status)
	}
	if !strings.Contains(body, "Your account information has been updated") {
		t.Error("expected success flash after redirect")
	}
	if !strings.Contains(body, "alicia") {
		t.Error("expected new username on account page")
	}

	// Flash shows only once.
	_, body = getBody(t, alice, ts.URL+"/account")
	if strings.Contains(body, "Your account information has been updated") {
		t.Error("flash message should not repeat")
	}
}

func TestAccountAvatarUpload(t *testing.T) {
	ts, staticDir := newTestServer(t)
	alice := newClient(t)
	register(t, alice, ts.URL, "alice", "alice@example.com")

	// Wrong extension rejected.
	resp := uploadAvatar(t, alice, ts.URL, "shot.gif")
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "Picture must be .png, .jpg, or .jpeg") {
		t.Error("expected extension rejection")
	}

	// Valid upload stores a resized file and updates the profile.
	resp = uploadAvatar(t, alice, ts.URL, "shot.png")
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("avatar upload = %d, want 303", resp.StatusCode)
	}

	_, body := getBody(t, alice, ts.URL+"/account")
	m := regexp.MustCompile(`/static/images/([0-9a-f]{16}\.png)`).FindStringSubmatch(body)
	if m == nil {
		t.Fatal("expected generated avatar filename on account page")
	}

	f, err := os.Open(filepath.Join(staticDir, "images", m[1]))
	if err != nil {
		t.Fatalf("open stored avatar: %v", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode stored avatar: %v", err)
	}
	if img.Bounds().Dx() > 125 || img.Bounds().Dy() > 125 {
		t.Errorf("avatar is %v, want both dimensions <= 125", img.Bounds())
	}
}

func TestHealthAndRequestID(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header")
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if payload["status"] != "ok" {
		t.Errorf("status = %q, want ok", payload["status"])
	}
}

func findPostID(t *testing.T, body string) string {
	t.Helper()
	m := regexp.MustCompile(`/post/(\d+)`).FindStringSubmatch(body)
	if m == nil {
		t.Fatal("no post link found in body")
	}
	return m[1]
}

func findNoteID(t *testing.T, body string) int64 {
	t.Helper()
	m := regexp.MustCompile(`data-note-id="(\d+)"`).FindStringSubmatch(body)
	if m == nil {
		t.Fatal("no note id found in body")
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		t.Fatalf("parse note id: %v", err)
	}
	return id
}

func deleteNote(t *testing.T, c *http.Client, base string, noteID int64) string {
	t.Helper()
	payload, _ := json.Marshal(map[string]int64{"noteId": noteID})
	resp, err := c.Post(base+"/delete-note", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /delete-note: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return strings.TrimSpace(string(body))
}

func uploadAvatar(t *testing.T, c *http.Client, base, filename string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("picture", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if err := png.Encode(fw, image.NewRGBA(image.Rect(0, 0, 300, 200))); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	mw.WriteField("username", "")
	mw.WriteField("email", "")
	mw.Close()

	req, err := http.NewRequest("POST", base+"/account", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("POST /account: %v", err)
	}
	return resp
}
