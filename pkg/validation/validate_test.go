package validation

import (
	"errors"
	"testing"

	"courier/pkg/models"
)

func TestValidateSendTrimsAndRejects(t *testing.T) {
	req := models.SendRequest{Sender: " 3 ", Recipient: "5", Body: "  hi  "}
	if err := ValidateSend(&req); err != nil {
		t.Fatalf("valid send rejected: %v", err)
	}
	if req.Sender != "3" || req.Body != "hi" {
		t.Fatalf("expected trimmed fields, got sender=%q body=%q", req.Sender, req.Body)
	}

	cases := []struct {
		name string
		req  models.SendRequest
		want error
	}{
		{"empty body", models.SendRequest{Sender: "3", Recipient: "5", Body: "   "}, ErrEmptyBody},
		{"self send", models.SendRequest{Sender: "3", Recipient: "3", Body: "hi"}, ErrSelfSend},
		{"missing user", models.SendRequest{Sender: "", Recipient: "5", Body: "hi"}, ErrMissingUser},
		{"underscore sender", models.SendRequest{Sender: "1_2", Recipient: "5", Body: "hi"}, ErrBadIdentity},
		{"underscore recipient", models.SendRequest{Sender: "1", Recipient: "2_3", Body: "hi"}, ErrBadIdentity},
	}
	for _, c := range cases {
		if err := ValidateSend(&c.req); !errors.Is(err, c.want) {
			t.Fatalf("%s: got %v, want %v", c.name, err, c.want)
		}
	}
}

func TestValidateSendLimits(t *testing.T) {
	SetRules(Rules{MaxBodyRunes: 5, MaxAttachments: 1})
	t.Cleanup(func() { SetRules(Rules{}) })

	long := models.SendRequest{Sender: "3", Recipient: "5", Body: "too long body"}
	if err := ValidateSend(&long); err == nil {
		t.Fatal("expected body length rejection")
	}
	many := models.SendRequest{Sender: "3", Recipient: "5", Body: "hi", Attachments: []string{"a", "b"}}
	if err := ValidateSend(&many); err == nil {
		t.Fatal("expected attachment count rejection")
	}
}
