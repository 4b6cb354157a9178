package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/mkurata/docship/pkg/domain/interfaces"
	"github.com/mkurata/docship/pkg/domain/model"
)

// WebhookHandler handles GitHub webhooks
type WebhookHandler struct {
	secret    string
	webhookUC interfaces.WebhookUseCase
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(secret string, webhookUC interfaces.WebhookUseCase) *WebhookHandler {
	return &WebhookHandler{
		secret:    secret,
		webhookUC: webhookUC,
	}
}

// Handle processes webhook requests
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		writeError(w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("X-Hub-Signature-256")
	if !h.verifySignature(body, signature) {
		logger.Warn("Invalid webhook signature")
		writeError(w, goerr.New("invalid signature"), http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	payload, err := github.ParseWebHook(eventType, body)
	if err != nil {
		logger.Error("Failed to parse webhook payload", "error", err)
		writeError(w, goerr.Wrap(err, "invalid JSON payload"), http.StatusBadRequest)
		return
	}

	event := buildEventContext(r.Header.Get("X-GitHub-Delivery"), payload)

	if err := h.webhookUC.ProcessEvent(ctx, event); err != nil {
		logger.Error("Failed to process webhook event", "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "success",
	}); err != nil {
		logger.Error("Failed to encode success response", "error", err)
	}
}

// buildEventContext projects the forge payload onto the trigger-relevant
// event context. Unrecognized payloads come back as EventTypeUnknown and are
// dropped downstream.
func buildEventContext(deliveryID string, payload any) *model.EventContext {
	event := &model.EventContext{
		DeliveryID: deliveryID,
		Type:       model.EventTypeUnknown,
		ReceivedAt: time.Now(),
	}

	switch e := payload.(type) {
	case *github.PushEvent:
		event.Type = model.EventTypePush
		event.Branch = branchFromRef(e.GetRef())
		event.CommitSHA = e.GetAfter()
		event.Sender = e.GetSender().GetLogin()
		if repo := e.GetRepo(); repo != nil {
			event.Repo = model.Repository{
				Owner:    repo.GetOwner().GetLogin(),
				Name:     repo.GetName(),
				CloneURL: repo.GetCloneURL(),
			}
		}
		// Branch deletions push a zero SHA; there is nothing to build
		if e.GetDeleted() {
			event.Type = model.EventTypeUnknown
		}

	case *github.PullRequestEvent:
		event.Type = model.EventTypePullRequest
		event.Sender = e.GetSender().GetLogin()
		if pr := e.GetPullRequest(); pr != nil {
			event.Branch = pr.GetHead().GetRef()
			event.CommitSHA = pr.GetHead().GetSHA()
		}
		if repo := e.GetRepo(); repo != nil {
			event.Repo = model.Repository{
				Owner:    repo.GetOwner().GetLogin(),
				Name:     repo.GetName(),
				CloneURL: repo.GetCloneURL(),
			}
		}
	}

	return event
}

// branchFromRef extracts the branch name from a push ref. Tag pushes return
// the ref untouched and never match a push trigger.
func branchFromRef(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

// verifySignature verifies the webhook signature
func (h *WebhookHandler) verifySignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}

	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(payload)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedMAC))
}
