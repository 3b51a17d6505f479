package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"labassistant/internal/domain"
	"labassistant/internal/providers/chat"
)

type fakeCompleter struct {
	reply string
	err   error
	calls []chat.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, credential string, req chat.Request) (string, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{input: "", want: LevelJunior},
		{input: "junior", want: LevelJunior},
		{input: " Senior ", want: LevelSenior},
		{input: "college", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.input)
		if tc.wantErr {
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("ParseLevel(%q) err = %v, want ErrInvalidInput", tc.input, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseLevel(%q) = %q, %v; want %q", tc.input, got, err, tc.want)
		}
	}
}

func TestExplainReactionUsesLevel(t *testing.T) {
	fake := &fakeCompleter{reply: "铁置换出铜……"}
	svc := NewService(fake, nil)

	got, err := svc.ExplainReaction(context.Background(), "key", " 铁与硫酸铜反应 ", LevelSenior)
	if err != nil {
		t.Fatalf("ExplainReaction returned error: %v", err)
	}
	if got != "铁置换出铜……" {
		t.Fatalf("ExplainReaction = %q", got)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(fake.calls))
	}
	if !strings.Contains(fake.calls[0].System, "senior high school") {
		t.Fatalf("system instruction does not name the level: %q", fake.calls[0].System)
	}
	if !strings.HasSuffix(fake.calls[0].Messages[0].Text, "：铁与硫酸铜反应") {
		t.Fatalf("user message = %q", fake.calls[0].Messages[0].Text)
	}
}

func TestExplainReactionRejectsBlank(t *testing.T) {
	svc := NewService(&fakeCompleter{}, nil)
	if _, err := svc.ExplainReaction(context.Background(), "key", "  ", LevelJunior); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestBalanceEquationParsesJSON(t *testing.T) {
	fake := &fakeCompleter{reply: "```json\n{\"balanced_equation\":\"4Fe + 3O2 → 2Fe2O3\",\"steps\":[\" 配平氧 \",\"\",\"配平铁\"]}\n```"}
	svc := NewService(fake, nil)

	got, err := svc.BalanceEquation(context.Background(), "key", "Fe + O2 → Fe2O3")
	if err != nil {
		t.Fatalf("BalanceEquation returned error: %v", err)
	}
	if got.BalancedEquation != "4Fe + 3O2 → 2Fe2O3" {
		t.Fatalf("BalancedEquation = %q", got.BalancedEquation)
	}
	if len(got.Steps) != 2 || got.Steps[0] != "配平氧" {
		t.Fatalf("Steps = %#v", got.Steps)
	}
	if got.Raw != fake.reply {
		t.Fatalf("Raw should carry the untouched reply")
	}
}

func TestBalanceEquationKeepsPlainText(t *testing.T) {
	fake := &fakeCompleter{reply: "4Fe + 3O2 = 2Fe2O3"}
	svc := NewService(fake, nil)

	got, err := svc.BalanceEquation(context.Background(), "key", "Fe + O2 = Fe2O3")
	if err != nil {
		t.Fatalf("BalanceEquation returned error: %v", err)
	}
	if got.BalancedEquation != "" || got.Raw != "4Fe + 3O2 = 2Fe2O3" {
		t.Fatalf("Balance = %#v", got)
	}
}

func TestBalanceEquationPropagatesUpstreamError(t *testing.T) {
	svc := NewService(&fakeCompleter{err: domain.ErrUpstream}, nil)
	if _, err := svc.BalanceEquation(context.Background(), "key", "H2 + O2 = H2O"); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestRecognizeMaterialAttachesImage(t *testing.T) {
	fake := &fakeCompleter{reply: "识别结果如下：{\"name\":\"硫酸铜\",\"safety\":\"避免误食\"}"}
	svc := NewService(fake, nil)

	got, err := svc.RecognizeMaterial(context.Background(), "key", "https://example.com/cuso4.jpg")
	if err != nil {
		t.Fatalf("RecognizeMaterial returned error: %v", err)
	}
	var decoded map[string]string
	if err := json.Unmarshal(got, &decoded); err != nil {
		t.Fatalf("result is not a JSON object: %v (%s)", err, got)
	}
	if decoded["name"] != "硫酸铜" {
		t.Fatalf("name = %q", decoded["name"])
	}
	msg := fake.calls[0].Messages[0]
	if msg.ImageURL != "https://example.com/cuso4.jpg" || msg.Text == "" {
		t.Fatalf("message = %#v, want text plus image", msg)
	}
}

func TestRecognizeMaterialWrapsPlainText(t *testing.T) {
	svc := NewService(&fakeCompleter{reply: "这是硫酸铜晶体"}, nil)

	got, err := svc.RecognizeMaterial(context.Background(), "key", "https://example.com/a.png")
	if err != nil {
		t.Fatalf("RecognizeMaterial returned error: %v", err)
	}
	var text string
	if err := json.Unmarshal(got, &text); err != nil || text != "这是硫酸铜晶体" {
		t.Fatalf("result = %s, want JSON string", got)
	}
}

func TestRecognizeMaterialRejectsBadURL(t *testing.T) {
	fake := &fakeCompleter{}
	svc := NewService(fake, nil)
	for _, raw := range []string{"", "not a url", "ftp://example.com/a.png", "/relative.png"} {
		if _, err := svc.RecognizeMaterial(context.Background(), "key", raw); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("RecognizeMaterial(%q) err = %v, want ErrInvalidInput", raw, err)
		}
	}
	if len(fake.calls) != 0 {
		t.Fatalf("invalid urls must not reach the model")
	}
}
