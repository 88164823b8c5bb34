package emailsvc

import (
	"bytes"
	"net/mail"
	"strings"
	"sync"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	appfs "github.com/trezcool/gradebook/fs"
	logsvc "github.com/trezcool/gradebook/services/logger"
)

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "Gradebook",
		DefaultFromEmail: mail.Address{Name: "Gradebook", Address: "noreply@example.com"},
		SendgridAPIKey:   "sg-key",
	}
}

func graderMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Jane Grader", Address: "jane@example.com"}},
		Subject:      "Grading assignments for project p1",
		TemplateName: "grader_assignments",
		TemplateData: map[string]interface{}{
			"GraderName":  "Jane",
			"ProjectID":   "p1",
			"ProjectName": "Project One",
			"Teams":       []string{"team-a", "team-b"},
		},
	}
}

func TestMain(m *testing.M) {
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, true, logsvc.NewNopLogger())
	m.Run()
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	svc := NewConsoleServiceMock(testConfig(), logsvc.NewNopLogger())

	noRecipient := &core.EmailMessage{Subject: "nobody", BodyStr: "hello"}
	svc.SendMessages(graderMessage(), noRecipient)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)

	msg := sent[0]
	assert.Contains(t, msg.TextContent, "Hi Jane,")
	assert.Contains(t, msg.TextContent, "2 team(s) to grade for project p1 (Project One)")
	assert.Contains(t, msg.TextContent, "- team-b")
	assert.Contains(t, msg.TextContent, "Gradebook")
	assert.Contains(t, msg.HTMLContent, "<li>team-a</li>")
}

func TestConsoleService_output(t *testing.T) {
	var out bytes.Buffer
	svc := NewConsoleService(testConfig(), logsvc.NewNopLogger())
	svc.out = &out

	svc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: "jane@example.com"}},
		Subject: "hello",
		BodyStr: "plain body",
	})
	svc.Wait()

	s := out.String()
	assert.Contains(t, s, "Subject: [Gradebook] hello")
	assert.Contains(t, s, "To: <jane@example.com>")
	assert.Contains(t, s, "plain body")
	assert.NotContains(t, s, "text/html")
}

func TestSendgridService_SendMessages(t *testing.T) {
	var (
		mu   sync.Mutex
		reqs []rest.Request
	)
	origAPIFunc := sendgridAPIFunc
	defer func() { sendgridAPIFunc = origAPIFunc }()
	sendgridAPIFunc = func(req rest.Request) (*rest.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		reqs = append(reqs, req)
		return &rest.Response{StatusCode: 202}, nil
	}

	svc := NewSendgridService(testConfig(), logsvc.NewNopLogger())
	svc.SendMessages(graderMessage())
	svc.Wait()

	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, "POST", string(req.Method))
	assert.True(t, strings.HasSuffix(req.BaseURL, endpoint))
	assert.Equal(t, "Bearer sg-key", req.Headers["Authorization"])

	body := string(req.Body)
	assert.Contains(t, body, "[Gradebook] Grading assignments for project p1")
	assert.Contains(t, body, "jane@example.com")
	assert.Contains(t, body, "text/html")
}
