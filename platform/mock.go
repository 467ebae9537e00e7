package platform

import (
	"context"
	"strconv"
	"sync"
)

// A fake user/content directory, for use in tests.
type MockDirectory struct {
	mu        *sync.RWMutex
	Users     map[string]User         // keyed by user ID
	Usernames map[string]string       // username -> user ID
	Links     map[string][]SocialLink // keyed by username
	UserPosts map[string][]Post       // keyed by author username, newest first
	FeedPosts map[string][]Post       // keyed by installation, newest first
	Mods      map[string][]User       // keyed by installation
	Approved  map[string][]User       // keyed by installation
	Extras    map[string]UserExtra    // keyed by username

	// When set, GetUserExtra fails with this error (simulates the flaky
	// extended-profile endpoint).
	ExtraErr error
}

var _ Directory = (*MockDirectory)(nil)

func NewMockDirectory() MockDirectory {
	return MockDirectory{
		mu:        &sync.RWMutex{},
		Users:     make(map[string]User),
		Usernames: make(map[string]string),
		Links:     make(map[string][]SocialLink),
		UserPosts: make(map[string][]Post),
		FeedPosts: make(map[string][]Post),
		Mods:      make(map[string][]User),
		Approved:  make(map[string][]User),
		Extras:    make(map[string]UserExtra),
	}
}

func (d *MockDirectory) Insert(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Users[u.ID] = u
	d.Usernames[u.Username] = u.ID
}

func (d *MockDirectory) GetUserByID(ctx context.Context, id string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.Users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (d *MockDirectory) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.Usernames[username]
	if !ok {
		return nil, ErrNotFound
	}
	u := d.Users[id]
	return &u, nil
}

func (d *MockDirectory) GetSocialLinks(ctx context.Context, username string) ([]SocialLink, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.Links[username], nil
}

func (d *MockDirectory) GetRecentPosts(ctx context.Context, username string, limit int) ([]Post, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	posts := d.UserPosts[username]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (d *MockDirectory) GetNewPosts(ctx context.Context, install string, limit int) ([]Post, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	posts := d.FeedPosts[install]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (d *MockDirectory) GetModerators(ctx context.Context, install string) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.Mods[install], nil
}

func (d *MockDirectory) GetApprovedUsers(ctx context.Context, install string) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.Approved[install], nil
}

func (d *MockDirectory) GetUserExtra(ctx context.Context, username string) (*UserExtra, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.ExtraErr != nil {
		return nil, d.ExtraErr
	}
	extra, ok := d.Extras[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &extra, nil
}

type MockComment struct {
	ID        string
	ContentID string
	Text      string
}

type MockMessage struct {
	To      string
	Subject string
	Text    string
}

type MockNotification struct {
	Subject string
	Body    string
	Install string
}

// A fake moderation action service which records every call, for use in
// tests. Individual actions can be made to fail via the *Err fields.
type MockModService struct {
	mu *sync.Mutex

	RemovedPosts    []string
	RemovedComments []string
	Comments        []MockComment
	Distinguished   []string
	Messages        []MockMessage
	Notifications   []MockNotification
	Bans            []BanRequest

	RemovePostErr    error
	SubmitCommentErr error
	BanErr           error

	nextCommentID int
}

var _ ModService = (*MockModService)(nil)

func NewMockModService() *MockModService {
	return &MockModService{mu: &sync.Mutex{}}
}

func (m *MockModService) RemovePost(ctx context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RemovePostErr != nil {
		return m.RemovePostErr
	}
	m.RemovedPosts = append(m.RemovedPosts, postID)
	return nil
}

func (m *MockModService) RemoveComment(ctx context.Context, commentID string, spam bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RemovedComments = append(m.RemovedComments, commentID)
	return nil
}

func (m *MockModService) BanUser(ctx context.Context, req BanRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BanErr != nil {
		return m.BanErr
	}
	m.Bans = append(m.Bans, req)
	return nil
}

func (m *MockModService) SubmitComment(ctx context.Context, contentID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SubmitCommentErr != nil {
		return "", m.SubmitCommentErr
	}
	m.nextCommentID++
	c := MockComment{
		ID:        "comment-" + strconv.Itoa(m.nextCommentID),
		ContentID: contentID,
		Text:      text,
	}
	m.Comments = append(m.Comments, c)
	return c.ID, nil
}

func (m *MockModService) DistinguishComment(ctx context.Context, commentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Distinguished = append(m.Distinguished, commentID)
	return nil
}

func (m *MockModService) SendPrivateMessage(ctx context.Context, to, subject, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Messages = append(m.Messages, MockMessage{To: to, Subject: subject, Text: text})
	return nil
}

func (m *MockModService) CreateModNotification(ctx context.Context, subject, body, install string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Notifications = append(m.Notifications, MockNotification{Subject: subject, Body: body, Install: install})
	return nil
}
