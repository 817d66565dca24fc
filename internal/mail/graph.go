package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ignite/unitchange-alerts/internal/pkg/logger"
)

const (
	graphBaseURL  = "https://graph.microsoft.com/v1.0"
	graphScope    = "https://graph.microsoft.com/.default"
	graphLoginURL = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
)

// GraphConfig holds the app registration used to send as SenderUPN.
// TokenURL and BaseURL default to the public Microsoft endpoints.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	SenderUPN    string
	Timeout      time.Duration
	TokenURL     string
	BaseURL      string
}

// GraphSender sends mail through the Graph sendMail endpoint using the
// client-credentials flow. Tokens are cached and refreshed by oauth2.
type GraphSender struct {
	client  *http.Client
	baseURL string
	sender  string
}

// NewGraphSender validates cfg and builds the authenticated client.
func NewGraphSender(cfg GraphConfig) (*GraphSender, error) {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"tenant_id", cfg.TenantID}, {"client_id", cfg.ClientID},
		{"client_secret", cfg.ClientSecret}, {"sender_upn", cfg.SenderUPN},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("graph sender missing %s", strings.Join(missing, ", "))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf(graphLoginURL, url.PathEscape(cfg.TenantID))
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = graphBaseURL
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{graphScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	base := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	client := cc.Client(base)
	client.Timeout = timeout

	return &GraphSender{client: client, baseURL: baseURL, sender: cfg.SenderUPN}, nil
}

type graphAddress struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphMessage struct {
	Message struct {
		Subject string `json:"subject"`
		Body    struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		} `json:"body"`
		ToRecipients []graphAddress `json:"toRecipients"`
		CcRecipients []graphAddress `json:"ccRecipients,omitempty"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

func addresses(list ...string) []graphAddress {
	out := make([]graphAddress, 0, len(list))
	for _, a := range list {
		var ga graphAddress
		ga.EmailAddress.Address = a
		out = append(out, ga)
	}
	return out
}

// Send posts msg to /users/{sender}/sendMail. Graph answers 202 Accepted on
// success; any other status is returned as an error with the response body.
func (g *GraphSender) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return ErrNoRecipient
	}

	var payload graphMessage
	payload.Message.Subject = msg.Subject
	payload.Message.Body.ContentType = "HTML"
	payload.Message.Body.Content = msg.HTML
	payload.Message.ToRecipients = addresses(to)
	payload.Message.CcRecipients = addresses(ccList(msg)...)
	payload.SaveToSentItems = true

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode graph message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", g.baseURL, url.PathEscape(g.sender))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph send to %s: %w", logger.RedactEmail(to), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph send to %s: status %d: %s",
			logger.RedactEmail(to), resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	logger.Debug("graph mail accepted", "recipient", to, "subject", msg.Subject)
	return nil
}
