package server

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"github.com/atdir/atdir/internal/identity"
)

const htmlContent = "text/html; charset=utf-8"
const plainContent = "text/plain; charset=utf-8"

// page is a fully rendered response body awaiting delivery.
type page struct {
	status      int
	contentType string
	body        string
}

type landingData struct {
	Handle string
	Domain string
}

type confirmationData struct {
	Handle string
	Token  string
}

type activeData struct {
	Handle string
}

type reservedData struct {
	Label  string
	Domain string
}

type errorData struct {
	Category string
	Message  string
}

var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "landing"}}<html><body>
<p>The subdomain <b>{{.Handle}}</b> is available as a handle under {{.Domain}}.
Enter your DID if you want it associated with it.</p>
<form action="/result" method="post">
DID: <input name="did" type="text" required><br>
Email (optional): <input name="email" type="text"><br>
<input type="submit" value=" Send ">
</form>
</body></html>
{{end}}
{{define "confirmation"}}<html><body>
<p>The handle <b>{{.Handle}}</b> has been successfully associated with your DID.</p>
<p>Your control token is <b>{{.Token}}</b>. Save it, you will need it to manage this record.</p>
</body></html>
{{end}}
{{define "active"}}<html><body>
<p>The handle <b>{{.Handle}}</b> is already registered.</p>
</body></html>
{{end}}
{{define "reserved"}}<html><body>
<p>The subdomain <b>{{.Label}}</b> is reserved and cannot be registered under {{.Domain}}.</p>
</body></html>
{{end}}
{{define "notfound"}}<html><body>
<p>Not found.</p>
</body></html>
{{end}}
{{define "error"}}<html><body>
<p>Error: {{.Category}}.</p>
{{if .Message}}<p>{{.Message}}</p>{{end}}
</body></html>
{{end}}`))

func renderPage(status int, name string, data any) page {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return page{
			status:      http.StatusInternalServerError,
			contentType: htmlContent,
			body:        "<html><body><p>Error: request failed.</p></body></html>",
		}
	}
	return page{status: status, contentType: htmlContent, body: buf.String()}
}

// errorPage maps an error to its user-facing category page. Validation and
// duplicate outcomes are expected results of the registration flow and are
// delivered as regular pages; anything else is a generic internal failure
// with no detail disclosed.
func errorPage(err error) page {
	switch {
	case errors.Is(err, identity.ErrInvalidDID):
		return renderPage(http.StatusOK, "error", errorData{
			Category: "invalid DID",
			Message:  "The DID entered is not valid. Remove the 'did=' at the beginning?",
		})
	case errors.Is(err, identity.ErrInvalidLabel), errors.Is(err, identity.ErrInvalidHandle):
		return renderPage(http.StatusOK, "error", errorData{Category: "invalid handle"})
	case errors.Is(err, identity.ErrMissingData):
		return renderPage(http.StatusOK, "error", errorData{Category: "required data not provided"})
	case errors.Is(err, identity.ErrEmptyData):
		return renderPage(http.StatusOK, "error", errorData{Category: "empty data"})
	case errors.Is(err, identity.ErrDuplicate):
		return renderPage(http.StatusOK, "error", errorData{
			Category: "already registered",
			Message:  "The handle, label, or DID is already associated with a record.",
		})
	default:
		return renderPage(http.StatusInternalServerError, "error", errorData{Category: "request failed"})
	}
}

func notFoundPage() page {
	return renderPage(http.StatusNotFound, "notfound", nil)
}

func writePage(w http.ResponseWriter, p page) {
	w.Header().Set("Content-Type", p.contentType)
	w.WriteHeader(p.status)
	_, _ = w.Write([]byte(p.body))
}
