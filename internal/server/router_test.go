package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/todo-web/internal/config"
	"github.com/yukikurage/todo-web/internal/database"
	"github.com/yukikurage/todo-web/internal/models"
	"github.com/yukikurage/todo-web/internal/repository"
	"github.com/yukikurage/todo-web/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "correct-horse"

type testApp struct {
	srv *httptest.Server
	db  *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Defaults()
	cfg.DBPath = filepath.Join(t.TempDir(), "todo.db")

	db, err := database.Connect(cfg, logger.Discard)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	limiter := services.NewMemoryLoginLimiter(3, time.Minute)
	authService := services.NewAuthService(repository.NewUserRepository(db), limiter, bcrypt.MinCost)
	taskService := services.NewTaskService(repository.NewTaskRepository(db), nil)

	store, err := NewSessionStore(cfg, []byte("test-secret-test-secret-32-bytes"))
	require.NoError(t, err)

	r, err := New(Deps{
		DB:           db,
		SessionStore: store,
		AuthService:  authService,
		TaskService:  taskService,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testApp{srv: srv, db: db}
}

// browser is an HTTP client with its own cookie jar that does not follow
// redirects.
type browser struct {
	t      *testing.T
	app    *testApp
	client *http.Client
}

func (a *testApp) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:   t,
		app: a,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type page struct {
	status   int
	location string
	body     string
}

func (b *browser) do(req *http.Request) page {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return page{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		body:     string(body),
	}
}

func (b *browser) get(path string) page {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.app.srv.URL+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) page {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.app.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) register(username string) page {
	b.t.Helper()
	return b.post("/register", url.Values{"username": {username}, "password": {testPassword}})
}

func (b *browser) login(username, password string) page {
	b.t.Helper()
	return b.post("/login", url.Values{"username": {username}, "password": {password}})
}

func (b *browser) signup(username string) {
	b.t.Helper()
	require.Equal(b.t, http.StatusFound, b.register(username).status)
	p := b.login(username, testPassword)
	require.Equal(b.t, http.StatusFound, p.status)
	require.Equal(b.t, "/", p.location)
}

func (b *browser) addTask(content string) {
	b.t.Helper()
	p := b.post("/add", url.Values{"content": {content}})
	require.Equal(b.t, http.StatusFound, p.status)
	require.Equal(b.t, "/", p.location)
}

func (a *testApp) userID(t *testing.T, username string) uint64 {
	t.Helper()
	var user models.User
	require.NoError(t, a.db.Where("username = ?", username).First(&user).Error)
	return user.ID
}

func (a *testApp) tasks(t *testing.T, userID uint64) []models.Task {
	t.Helper()
	var tasks []models.Task
	require.NoError(t, a.db.Where("user_id = ?", userID).Order("id ASC").Find(&tasks).Error)
	return tasks
}

func (a *testApp) countTasks(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, a.db.Model(&models.Task{}).Count(&n).Error)
	return n
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	p := app.browser(t).get("/health")

	require.Equal(t, http.StatusOK, p.status)
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(p.body), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAnonymousIsRedirectedToLogin(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	for _, path := range []string{"/", "/complete/1", "/delete/1", "/edit/1"} {
		p := b.get(path)
		assert.Equal(t, http.StatusFound, p.status, path)
		assert.Equal(t, "/login", p.location, path)
	}
	p := b.post("/add", url.Values{"content": {"sneaky"}})
	assert.Equal(t, "/login", p.location)
	assert.Equal(t, int64(0), app.countTasks(t))
}

func TestRegisterAndLogin(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	p := b.register("alice")
	require.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/login", p.location)

	p = b.get("/login")
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "Registration successful")

	p = b.login("alice", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, p.status)
	assert.Contains(t, p.body, "invalid username or password")
	assert.Equal(t, "/login", b.get("/").location)

	p = b.login("alice", testPassword)
	require.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/", p.location)

	p = b.get("/")
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "alice")

	assert.Equal(t, "/", b.get("/login").location)
	assert.Equal(t, "/", b.get("/register").location)
}

func TestRegister_Rejections(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	require.Equal(t, http.StatusFound, b.register("alice").status)

	p := b.register("alice")
	assert.Equal(t, http.StatusConflict, p.status)
	assert.Contains(t, p.body, "username already exists")

	p = b.post("/register", url.Values{"username": {"bob"}, "password": {"123"}})
	assert.Equal(t, http.StatusBadRequest, p.status)
	assert.Contains(t, p.body, "password must be at least")

	p = b.post("/register", url.Values{"username": {"  "}, "password": {testPassword}})
	assert.Equal(t, http.StatusBadRequest, p.status)

	var n int64
	require.NoError(t, app.db.Model(&models.User{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.signup("alice")

	p := b.get("/logout")
	require.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/login", p.location)
	assert.Equal(t, "/login", b.get("/").location)
}

func TestLoginThrottling(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	require.Equal(t, http.StatusFound, b.register("alice").status)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, b.login("alice", "nope-nope").status)
	}

	p := b.login("alice", testPassword)
	assert.Equal(t, http.StatusTooManyRequests, p.status)
	assert.Contains(t, p.body, "too many failed login attempts")
	assert.Equal(t, "/login", b.get("/").location)
}

func TestLoginThrottling_IgnoresForwardedFor(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	require.Equal(t, http.StatusFound, b.register("alice").status)

	loginFrom := func(forwardedFor, password string) page {
		form := url.Values{"username": {"alice"}, "password": {password}}
		req, err := http.NewRequest(http.MethodPost, app.srv.URL+"/login", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		return b.do(req)
	}

	statuses := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		statuses = append(statuses, loginFrom(fmt.Sprintf("203.0.113.%d", i+1), "nope-nope").status)
	}
	assert.Equal(t, []int{
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, statuses)

	p := loginFrom("198.51.100.7", testPassword)
	assert.Equal(t, http.StatusTooManyRequests, p.status)
	assert.Equal(t, "/login", b.get("/").location)
}

func TestNew_InvalidTrustedProxies(t *testing.T) {
	_, err := New(Deps{TrustedProxies: []string{"not-an-ip"}})
	require.Error(t, err)
}

func TestAddTask(t *testing.T) {
	app := newTestApp(t)
	alice := app.browser(t)
	alice.signup("alice")
	bob := app.browser(t)
	bob.signup("bob")

	alice.addTask("   ")
	assert.Equal(t, int64(0), app.countTasks(t))

	alice.addTask("buy milk")
	aliceTasks := app.tasks(t, app.userID(t, "alice"))
	require.Len(t, aliceTasks, 1)
	assert.Equal(t, models.PriorityLow, aliceTasks[0].Priority)
	assert.False(t, aliceTasks[0].Completed)

	assert.Contains(t, alice.get("/").body, "buy milk")
	assert.NotContains(t, bob.get("/").body, "buy milk")
}

func TestAddTask_WithMetadata(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.signup("alice")

	p := b.post("/add", url.Values{"content": {"file taxes"}, "due_date": {"2026-04-15"}, "priority": {"high"}})
	require.Equal(t, http.StatusFound, p.status)

	tasks := app.tasks(t, app.userID(t, "alice"))
	require.Len(t, tasks, 1)
	assert.Equal(t, models.PriorityHigh, tasks[0].Priority)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, "2026-04-15", tasks[0].DueDate.UTC().Format("2006-01-02"))
}

func TestAddTask_InvalidInputIsFlashed(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.signup("alice")

	p := b.post("/add", url.Values{"content": {"x"}, "due_date": {"15/04/2026"}})
	require.Equal(t, http.StatusFound, p.status)
	assert.Contains(t, b.get("/").body, "invalid due date")

	b.post("/add", url.Values{"content": {"x"}, "priority": {"Urgent"}})
	assert.Contains(t, b.get("/").body, "priority must be Low, Medium or High")

	b.post("/add", url.Values{"content": {strings.Repeat("a", 201)}})
	assert.Contains(t, b.get("/").body, "content must be at most 200 characters")

	assert.Equal(t, int64(0), app.countTasks(t))
	assert.NotContains(t, b.get("/").body, "invalid due date")
}

func TestCompleteTask_TogglesTwice(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.signup("alice")
	b.addTask("walk dog")

	userID := app.userID(t, "alice")
	taskID := app.tasks(t, userID)[0].ID
	path := "/complete/" + itoa(taskID)

	require.Equal(t, "/", b.get(path).location)
	assert.True(t, app.tasks(t, userID)[0].Completed)

	require.Equal(t, "/", b.get(path).location)
	assert.False(t, app.tasks(t, userID)[0].Completed)
}

func TestDeleteTask(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.signup("alice")
	b.addTask("one")
	b.addTask("two")

	userID := app.userID(t, "alice")
	tasks := app.tasks(t, userID)

	p := b.get("/delete/9999")
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/", p.location)
	assert.Equal(t, int64(2), app.countTasks(t))

	p = b.get("/delete/not-a-number")
	assert.Equal(t, "/", p.location)

	require.Equal(t, "/", b.get("/delete/"+itoa(tasks[0].ID)).location)
	remaining := app.tasks(t, userID)
	require.Len(t, remaining, 1)
	assert.Equal(t, "two", remaining[0].Content)
}

func TestOtherUsersTasksAreUntouchable(t *testing.T) {
	app := newTestApp(t)
	alice := app.browser(t)
	alice.signup("alice")
	alice.addTask("private")

	aliceID := app.userID(t, "alice")
	taskID := itoa(app.tasks(t, aliceID)[0].ID)

	mallory := app.browser(t)
	mallory.signup("mallory")

	assert.Equal(t, "/", mallory.get("/complete/"+taskID).location)
	assert.Equal(t, "/", mallory.get("/delete/"+taskID).location)
	assert.Equal(t, http.StatusNotFound, mallory.get("/edit/"+taskID).status)
	p := mallory.post("/edit/"+taskID, url.Values{"content": {"pwned"}})
	assert.Equal(t, http.StatusNotFound, p.status)

	tasks := app.tasks(t, aliceID)
	require.Len(t, tasks, 1)
	assert.Equal(t, "private", tasks[0].Content)
	assert.False(t, tasks[0].Completed)
}

func TestEditTask(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.signup("alice")
	b.addTask("draft")

	userID := app.userID(t, "alice")
	path := "/edit/" + itoa(app.tasks(t, userID)[0].ID)

	p := b.get(path)
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, `value="draft"`)

	p = b.post(path, url.Values{"content": {""}})
	assert.Equal(t, http.StatusBadRequest, p.status)
	assert.Contains(t, p.body, "content is required")

	p = b.post(path, url.Values{"content": {"final"}, "due_date": {"2026-12-24"}, "priority": {"Medium"}})
	require.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/", p.location)

	task := app.tasks(t, userID)[0]
	assert.Equal(t, "final", task.Content)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	require.NotNil(t, task.DueDate)

	p = b.post(path, url.Values{"content": {"final"}})
	require.Equal(t, http.StatusFound, p.status)
	assert.Nil(t, app.tasks(t, userID)[0].DueDate)
}

func TestEditTask_Missing(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.signup("alice")

	p := b.get("/edit/42")
	assert.Equal(t, http.StatusNotFound, p.status)
	assert.Contains(t, p.body, "task not found")
}

func TestSuggest_NotConfigured(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.signup("alice")

	p := b.post("/suggest", url.Values{"text": {"call mom tomorrow"}})
	require.Equal(t, http.StatusFound, p.status)
	assert.Contains(t, b.get("/").body, "task suggestions are not configured")
	assert.Equal(t, int64(0), app.countTasks(t))
}

func TestStaleSessionIsCleared(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.signup("ghost")

	require.NoError(t, app.db.Where("username = ?", "ghost").Delete(&models.User{}).Error)

	p := b.get("/")
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/login", p.location)
	assert.Equal(t, http.StatusOK, b.get("/login").status)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)
	p := app.browser(t).get("/nope")
	assert.Equal(t, http.StatusNotFound, p.status)
	assert.Contains(t, p.body, "Page not found")
}

func TestNewSessionStore_Unsupported(t *testing.T) {
	cfg := config.Defaults()
	cfg.SessionStore = "memcached"
	_, err := NewSessionStore(cfg, []byte("secret"))
	require.Error(t, err)
}

func TestNewSessionStore_RedisUsesConfiguredDB(t *testing.T) {
	cfg := config.Defaults()
	cfg.SessionStore = "redis"
	cfg.RedisHost = "127.0.0.1"
	cfg.RedisPort = "1"
	cfg.RedisDB = 3

	_, err := NewSessionStore(cfg, []byte("secret"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis session store")
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}
