package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillramp/skillramp-portal/internal/quiz"
)

// authorRepo records authoring mutations in memory.
type authorRepo struct {
	quiz.Repository
	questions []quiz.Question
	options   []quiz.Option
	deleted   []uuid.UUID
}

func (f *authorRepo) CreateQuestion(ctx context.Context, q quiz.Question) (quiz.Question, error) {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	for i := range q.Options {
		if q.Options[i].ID == uuid.Nil {
			q.Options[i].ID = uuid.New()
		}
		q.Options[i].QuestionID = q.ID
		f.options = append(f.options, q.Options[i])
	}
	f.questions = append(f.questions, q)
	return q, nil
}

func (f *authorRepo) UpdateQuestion(ctx context.Context, q quiz.Question) (quiz.Question, error) {
	return q, nil
}

func (f *authorRepo) SoftDeleteQuestion(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *authorRepo) CreateOption(ctx context.Context, o quiz.Option) (quiz.Option, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	f.options = append(f.options, o)
	return o, nil
}

func (f *authorRepo) UpdateOption(ctx context.Context, o quiz.Option) (quiz.Option, error) {
	return o, nil
}

func (f *authorRepo) SoftDeleteOption(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func newAuthorServer(t *testing.T, repo *authorRepo) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	NewAuthorAPI(repo).Mount(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postQuestion(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/units/"+uuid.NewString()+"/questions",
		"application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp
}

func TestCreateQuestionValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{
			name: "valid choice question",
			body: `{"prompt":"¿Capital de Perú?","kind":"choice-single","points":10,
			        "options":[{"label":"Lima","correct":true},{"label":"Cusco"}]}`,
			want: http.StatusCreated,
		},
		{
			name: "valid true-false",
			body: `{"prompt":"El agua hierve a 100C","kind":"true-false","points":5,
			        "options":[{"label":"Verdadero","correct":true},{"label":"Falso"}]}`,
			want: http.StatusCreated,
		},
		{
			name: "valid free text",
			body: `{"prompt":"Explica","kind":"free-text","points":5}`,
			want: http.StatusCreated,
		},
		{
			name: "missing prompt",
			body: `{"kind":"free-text","points":5}`,
			want: http.StatusBadRequest,
		},
		{
			name: "unknown kind",
			body: `{"prompt":"x","kind":"essay","points":5}`,
			want: http.StatusBadRequest,
		},
		{
			name: "zero points",
			body: `{"prompt":"x","kind":"free-text","points":0}`,
			want: http.StatusBadRequest,
		},
		{
			name: "negative points",
			body: `{"prompt":"x","kind":"free-text","points":-3}`,
			want: http.StatusBadRequest,
		},
		{
			name: "choice with one option",
			body: `{"prompt":"x","kind":"choice-single","points":5,
			        "options":[{"label":"solo","correct":true}]}`,
			want: http.StatusBadRequest,
		},
		{
			name: "true-false with two correct",
			body: `{"prompt":"x","kind":"true-false","points":5,
			        "options":[{"label":"a","correct":true},{"label":"b","correct":true}]}`,
			want: http.StatusBadRequest,
		},
		{
			name: "free text with options",
			body: `{"prompt":"x","kind":"free-text","points":5,
			        "options":[{"label":"a"}]}`,
			want: http.StatusBadRequest,
		},
		{
			name: "option without label",
			body: `{"prompt":"x","kind":"choice-single","points":5,
			        "options":[{"label":"a","correct":true},{"correct":false}]}`,
			want: http.StatusBadRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &authorRepo{}
			srv := newAuthorServer(t, repo)
			resp := postQuestion(t, srv, tc.body)
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
			if tc.want != http.StatusCreated && len(repo.questions) != 0 {
				t.Errorf("rejected question still reached the store")
			}
		})
	}
}

func TestCreateQuestionPersistsOptions(t *testing.T) {
	repo := &authorRepo{}
	srv := newAuthorServer(t, repo)
	resp := postQuestion(t, srv,
		`{"prompt":"p","kind":"choice-single","points":10,
		  "options":[{"label":"a","correct":true},{"label":"b"}]}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(repo.questions) != 1 || len(repo.options) != 2 {
		t.Fatalf("stored %d questions, %d options", len(repo.questions), len(repo.options))
	}
	for _, o := range repo.options {
		if o.QuestionID != repo.questions[0].ID {
			t.Errorf("option not linked to its question")
		}
	}
}

func TestDeleteEndpointsSoftDelete(t *testing.T) {
	repo := &authorRepo{}
	srv := newAuthorServer(t, repo)

	qid := uuid.New()
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/questions/"+qid.String(), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete question = %d", resp.StatusCode)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != qid {
		t.Errorf("soft delete not forwarded: %v", repo.deleted)
	}
}
