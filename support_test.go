package lectern

import (
	"context"
	"strings"
	"sync"
)

// fakeStore is an in-memory Store with injectable failures.
type fakeStore struct {
	mu       sync.Mutex
	chapters map[string][]Verse
	flags    map[string]bool
	usage    DailyUsage

	getErr      error
	putErr      error
	getUsageErr error
	setUsageErr error
	seedErr     error

	putCalls  int
	seedCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chapters: make(map[string][]Verse),
		flags:    make(map[string]bool),
	}
}

func (s *fakeStore) GetChapter(ctx context.Context, ref ChapterRef) ([]Verse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.chapters[ref.Key()], nil
}

func (s *fakeStore) PutChapter(ctx context.Context, ref ChapterRef, verses []Verse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	if s.putErr != nil {
		return s.putErr
	}
	s.chapters[ref.Key()] = verses
	return nil
}

func (s *fakeStore) HasChapter(ctx context.Context, ref ChapterRef) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return false, s.getErr
	}
	_, ok := s.chapters[ref.Key()]
	return ok, nil
}

func (s *fakeStore) SeedChapters(ctx context.Context, entries []ChapterEntry, readyFlag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedCalls++
	if s.seedErr != nil {
		return s.seedErr
	}
	for _, e := range entries {
		s.chapters[e.Ref.Key()] = e.Verses
	}
	s.flags[readyFlag] = true
	return nil
}

func (s *fakeStore) GetFlag(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[key], nil
}

func (s *fakeStore) SetFlag(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[key] = true
	return nil
}

func (s *fakeStore) GetUsage(ctx context.Context) (DailyUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getUsageErr != nil {
		return DailyUsage{}, s.getUsageErr
	}
	return s.usage, nil
}

func (s *fakeStore) SetUsage(ctx context.Context, u DailyUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setUsageErr != nil {
		return s.setUsageErr
	}
	s.usage = u
	return nil
}

func (s *fakeStore) Init(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                   { return nil }

func (s *fakeStore) chapterCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chapters)
}

var _ Store = (*fakeStore)(nil)

// fakeFetcher counts calls and serves canned verses or an error.
type fakeFetcher struct {
	mu     sync.Mutex
	verses []Verse
	err    error
	calls  int
	// failRefs marks specific chapter keys as permanently failing.
	failRefs map[string]error
}

func (f *fakeFetcher) FetchChapter(ctx context.Context, ref ChapterRef) ([]Verse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.failRefs[ref.Key()]; ok {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.verses, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var _ Fetcher = (*fakeFetcher)(nil)

// fakeProvider streams canned chunks, optionally failing before or after
// sending a number of them.
type fakeProvider struct {
	mu        sync.Mutex
	chunks    []string
	err       error
	failAfter int // deltas to send before err fires; 0 means fail before any
	calls     int
	lastReq   ChatRequest
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	p.mu.Lock()
	p.calls++
	p.lastReq = req
	p.mu.Unlock()
	if p.err != nil {
		return ChatResponse{}, p.err
	}
	return ChatResponse{Content: strings.Join(p.chunks, "")}, nil
}

func (p *fakeProvider) ChatStream(ctx context.Context, req ChatRequest, ch chan<- string) (ChatResponse, error) {
	defer close(ch)
	p.mu.Lock()
	p.calls++
	p.lastReq = req
	p.mu.Unlock()
	if p.err != nil && p.failAfter == 0 {
		return ChatResponse{}, p.err
	}
	for i, c := range p.chunks {
		if p.err != nil && i == p.failAfter {
			return ChatResponse{}, p.err
		}
		ch <- c
	}
	return ChatResponse{Content: strings.Join(p.chunks, ""), Usage: Usage{InputTokens: 10, OutputTokens: 20}}, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var _ Provider = (*fakeProvider)(nil)

// fakeEntitlements answers pro lookups from a set.
type fakeEntitlements struct {
	pro map[string]bool
	err error
}

func (e *fakeEntitlements) IsPro(ctx context.Context, userID string) (bool, error) {
	if e.err != nil {
		return false, e.err
	}
	return e.pro[userID], nil
}

var _ Entitlements = (*fakeEntitlements)(nil)

func kjv(book string, chapter int) ChapterRef {
	return ChapterRef{Translation: TranslationKJV, Book: book, Chapter: chapter}
}
