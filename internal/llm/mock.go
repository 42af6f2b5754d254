package llm

import (
	"context"
	"hash/fnv"
	"sync"
)

// MockEmbedder is a TextEmbedder that returns configured vectors per text and
// a deterministic hash vector otherwise. Err, when set, fails every call.
type MockEmbedder struct {
	Dim     int
	Vectors map[string][]float32
	Err     error
	// FailOn fails only calls whose text matches a key.
	FailOn map[string]error

	mu    sync.Mutex
	calls []string
}

var _ TextEmbedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock producing vectors of dim dimensions.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{
		Dim:     dim,
		Vectors: make(map[string][]float32),
		FailOn:  make(map[string]error),
	}
}

// EmbedText records the call and returns the configured vector.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if err, ok := m.FailOn[text]; ok {
		return nil, err
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}
	return hashVector(text, m.Dim), nil
}

// Calls returns every text embedded so far.
func (m *MockEmbedder) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.calls...)
}

// MockVisual is a VisualEmbedder keyed by image path and query text.
type MockVisual struct {
	Dim         int
	Images      map[string][]float32
	Texts       map[string][]float32
	ImageErr    error
	TextErr     error
	mu          sync.Mutex
	imageCalls  int
	textQueries []string
}

var _ VisualEmbedder = (*MockVisual)(nil)

// NewMockVisual creates a visual mock producing vectors of dim dimensions.
func NewMockVisual(dim int) *MockVisual {
	return &MockVisual{
		Dim:    dim,
		Images: make(map[string][]float32),
		Texts:  make(map[string][]float32),
	}
}

// EmbedImage returns the configured vector for path, or a hash of it.
func (m *MockVisual) EmbedImage(ctx context.Context, path string) ([]float32, error) {
	m.mu.Lock()
	m.imageCalls++
	m.mu.Unlock()
	if m.ImageErr != nil {
		return nil, m.ImageErr
	}
	if v, ok := m.Images[path]; ok {
		return v, nil
	}
	return hashVector("image:"+path, m.Dim), nil
}

// EmbedTextForVisual returns the configured vector for text, or a hash of it.
func (m *MockVisual) EmbedTextForVisual(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.textQueries = append(m.textQueries, text)
	m.mu.Unlock()
	if m.TextErr != nil {
		return nil, m.TextErr
	}
	if v, ok := m.Texts[text]; ok {
		return v, nil
	}
	return hashVector("text:"+text, m.Dim), nil
}

// ImageCalls returns how many images were embedded.
func (m *MockVisual) ImageCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.imageCalls
}

// MockResponse is one queued Generator answer.
type MockResponse struct {
	Content string
	Error   error
}

// MockCall records one Generator invocation.
type MockCall struct {
	Method    string
	Prompt    string
	ImagePath string
}

// MockGenerator replays queued responses in order and falls back to
// Default once the queue is exhausted.
type MockGenerator struct {
	Default     string
	Description string
	DescribeErr error

	mu        sync.Mutex
	responses []MockResponse
	respIndex int
	calls     []MockCall
}

var _ Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a generator mock.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		Default:     "Mock response",
		Description: "Mock image description",
	}
}

// AddResponse queues a successful answer.
func (m *MockGenerator) AddResponse(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{Content: content})
}

// AddErrorResponse queues a failing answer.
func (m *MockGenerator) AddErrorResponse(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{Error: err})
}

func (m *MockGenerator) next(call MockCall) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	if m.respIndex < len(m.responses) {
		resp := m.responses[m.respIndex]
		m.respIndex++
		return resp.Content, resp.Error
	}
	return m.Default, nil
}

// Generate returns the next queued response.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return m.next(MockCall{Method: "Generate", Prompt: prompt})
}

// GenerateWithImage returns the next queued response.
func (m *MockGenerator) GenerateWithImage(ctx context.Context, prompt, imagePath string) (string, error) {
	return m.next(MockCall{Method: "GenerateWithImage", Prompt: prompt, ImagePath: imagePath})
}

// DescribeImage returns Description or DescribeErr without consuming the queue.
func (m *MockGenerator) DescribeImage(ctx context.Context, imagePath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: "DescribeImage", ImagePath: imagePath})
	if m.DescribeErr != nil {
		return "", m.DescribeErr
	}
	return m.Description, nil
}

// GetCalls returns all recorded calls.
func (m *MockGenerator) GetCalls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.calls...)
}

// LastCall returns the most recent call, or nil if none were made.
func (m *MockGenerator) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	c := m.calls[len(m.calls)-1]
	return &c
}

// hashVector derives a stable non-zero vector from s.
func hashVector(s string, dim int) []float32 {
	if dim <= 0 {
		dim = 8
	}
	v := make([]float32, dim)
	h := fnv.New64a()
	for i := range v {
		h.Write([]byte(s))
		v[i] = float32(h.Sum64()%1000)/1000 + 0.001
	}
	return v
}
