package blogposts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/blogposts/internal/telemetry/metrics"
	"github.com/2beens/blogposts/internal/telemetry/tracing"
	"github.com/2beens/blogposts/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=blogposts_test

type postsRepo interface {
	Add(ctx context.Context, post *BlogPost) error
	Get(ctx context.Context, id string) (*BlogPost, error)
	All(ctx context.Context) ([]*BlogPost, error)
	Update(ctx context.Context, id string, update PostUpdate) error
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	repo           postsRepo
	metricsManager *metrics.Manager
}

func NewHandler(
	repo postsRepo,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:           repo,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/blog-posts", handler.handleAll).Methods("GET", "OPTIONS").Name("all-blog-posts")
	router.HandleFunc("/blog-posts", handler.handleNewPost).Methods("POST", "OPTIONS").Name("new-blog-post")
	router.HandleFunc("/blog-posts/{id}", handler.handleGetPost).Methods("GET", "OPTIONS").Name("get-blog-post")
	router.HandleFunc("/blog-posts/{id}", handler.handleUpdatePost).Methods("PUT", "OPTIONS").Name("update-blog-post")
	router.HandleFunc("/blog-posts/{id}", handler.handleDeletePost).Methods("DELETE", "OPTIONS").Name("delete-blog-post")
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	posts, err := handler.repo.All(r.Context())
	if err != nil {
		log.Errorf("get all blog posts: %s", err)
		tracing.SpanError(r.Context(), err)
		pkg.WriteErrorResponse(w, "get all blog posts failed", http.StatusInternalServerError)
		return
	}

	resp := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		resp = append(resp, post.Serialize())
	}

	pkg.WriteJSONResponse(w, resp, http.StatusOK)
}

func (handler *Handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	post, err := handler.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			pkg.WriteErrorResponse(w, fmt.Sprintf("blog post %s not found", id), http.StatusNotFound)
			return
		}
		log.Errorf("get blog post %s: %s", id, err)
		tracing.SpanError(r.Context(), err)
		pkg.WriteErrorResponse(w, "get blog post failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponse(w, post.Serialize(), http.StatusOK)
}

func (handler *Handler) handleNewPost(w http.ResponseWriter, r *http.Request) {
	var newPostReq newPostRequest
	if err := decodeJSONBody(r, &newPostReq); err != nil {
		log.Debugf("new blog post, unmarshal json: %s", err)
		pkg.WriteErrorResponse(w, "invalid json body", http.StatusBadRequest)
		return
	}

	if err := newPostReq.Validate(); err != nil {
		pkg.WriteErrorResponse(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	post := newPostReq.toBlogPost()
	if err := handler.repo.Add(r.Context(), post); err != nil {
		log.Errorf("add new blog post: %s", err)
		tracing.SpanError(r.Context(), err)
		pkg.WriteErrorResponse(w, "add new blog post failed", http.StatusInternalServerError)
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterPostsCreated.Inc()
	}
	log.Tracef("new blog post %s: [%s] added", post.ID, post.Title)

	w.Header().Set("Location", "/blog-posts/"+post.ID)
	pkg.WriteJSONResponse(w, post.Serialize(), http.StatusCreated)
}

func (handler *Handler) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var updateReq updatePostRequest
	if err := decodeJSONBody(r, &updateReq); err != nil {
		log.Debugf("update blog post, unmarshal json: %s", err)
		pkg.WriteErrorResponse(w, "invalid json body", http.StatusBadRequest)
		return
	}

	if updateReq.ID == "" {
		pkg.WriteErrorResponse(w, "id is required", http.StatusBadRequest)
		return
	}
	if updateReq.ID != id {
		pkg.WriteErrorResponse(w, "body id does not match the path id", http.StatusBadRequest)
		return
	}
	if err := updateReq.Validate(); err != nil {
		pkg.WriteErrorResponse(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(r.Context(), id, updateReq.toPostUpdate()); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			pkg.WriteErrorResponse(w, fmt.Sprintf("blog post %s not found", id), http.StatusNotFound)
			return
		}
		log.Errorf("update blog post %s: %s", id, err)
		tracing.SpanError(r.Context(), err)
		pkg.WriteErrorResponse(w, "update blog post failed", http.StatusInternalServerError)
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterPostsUpdated.Inc()
	}

	pkg.WriteNoContent(w)
}

func (handler *Handler) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := handler.repo.Delete(r.Context(), id); err != nil {
		log.Errorf("delete blog post %s: %s", id, err)
		tracing.SpanError(r.Context(), err)
		pkg.WriteErrorResponse(w, "delete blog post failed", http.StatusInternalServerError)
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterPostsDeleted.Inc()
	}

	pkg.WriteNoContent(w)
}

// decodeJSONBody reads the whole body as a single JSON value, trailing data is an error.
func decodeJSONBody(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	return json.Unmarshal(body, v)
}

// validationMessage flattens ozzo field errors into a single line.
func validationMessage(err error) string {
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		if fieldErrs.Filter() == nil {
			return "invalid request"
		}
		return fieldErrs.Error()
	}
	return err.Error()
}
