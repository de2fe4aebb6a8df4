package starapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const openapiVersion = "3.1.0"

// Contact is the API contact block of the OpenAPI document.
type Contact struct {
	Name  string
	URL   string
	Email string
}

// License is the license block of the OpenAPI document. An empty Identifier
// defaults to the name with spaces replaced by dashes.
type License struct {
	Name       string
	Identifier string
}

// ExternalDocs links to documentation hosted elsewhere.
type ExternalDocs struct {
	URL         string
	Description string
}

// OpenAPI holds the document metadata. Assign it to Config.Docs to generate
// and serve the document; the routes themselves contribute their operations
// through the metadata set at registration.
type OpenAPI struct {
	Title          string
	Version        string
	Summary        string
	Description    string
	TermsOfService string
	License        *License
	Contact        *Contact
	ExternalDocs   *ExternalDocs
}

// NewOpenAPI creates the document metadata with the required info fields.
func NewOpenAPI(title, version string) *OpenAPI {
	return &OpenAPI{Title: title, Version: version}
}

func (o *OpenAPI) info() *openapi3.Info {
	description := o.Description
	if o.Summary != "" {
		if description == "" {
			description = o.Summary
		} else {
			description = o.Summary + "\n\n" + description
		}
	}
	info := &openapi3.Info{
		Title:          o.Title,
		Version:        o.Version,
		Description:    description,
		TermsOfService: o.TermsOfService,
	}
	if o.Contact != nil {
		info.Contact = &openapi3.Contact{Name: o.Contact.Name, URL: o.Contact.URL, Email: o.Contact.Email}
	}
	if o.License != nil {
		identifier := o.License.Identifier
		if identifier == "" {
			identifier = strings.ReplaceAll(o.License.Name, " ", "-")
		}
		info.License = &openapi3.License{Name: o.License.Name}
		info.License.Extensions = map[string]any{"x-identifier": identifier}
	}
	return info
}

type builtDoc struct {
	t    *openapi3.T
	json []byte
}

// APIDocument builds (or returns the cached) OpenAPI document for the
// application's visible routes.
func (app *Application) APIDocument() (*openapi3.T, error) {
	doc, err := app.builtDocument()
	if err != nil {
		return nil, err
	}
	return doc.t, nil
}

// APIDocumentJSON returns the OpenAPI document serialized with an indent of
// four spaces.
func (app *Application) APIDocumentJSON() ([]byte, error) {
	doc, err := app.builtDocument()
	if err != nil {
		return nil, err
	}
	return doc.json, nil
}

// SaveAPIDocument writes the OpenAPI document to a file.
func (app *Application) SaveAPIDocument(path string) error {
	data, err := app.APIDocumentJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save api document: %w", err)
	}
	return nil
}

func (app *Application) builtDocument() (*builtDoc, error) {
	app.docMu.Lock()
	defer app.docMu.Unlock()
	if app.doc != nil {
		return app.doc, nil
	}

	docs := app.config.Docs
	if docs == nil {
		return nil, errors.New("starapi: no OpenAPI metadata configured")
	}

	builder := newSchemaBuilder()
	paths := openapi3.NewPaths()
	for _, rt := range app.routes {
		if rt.hidden {
			continue
		}
		key := docPath(rt.path)
		item := paths.Value(key)
		if item == nil {
			item = &openapi3.PathItem{}
			paths.Set(key, item)
		}
		for _, method := range rt.methods {
			if method == http.MethodHead {
				continue
			}
			item.SetOperation(method, buildOperation(rt, method, builder))
		}
	}

	t := &openapi3.T{
		OpenAPI: openapiVersion,
		Info:    docs.info(),
		Paths:   paths,
	}
	if len(builder.schemas) > 0 {
		t.Components = &openapi3.Components{Schemas: builder.schemas}
	}
	if docs.ExternalDocs != nil {
		t.ExternalDocs = &openapi3.ExternalDocs{URL: docs.ExternalDocs.URL, Description: docs.ExternalDocs.Description}
	}

	data, err := json.MarshalIndent(t, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode api document: %w", err)
	}
	app.doc = &builtDoc{t: t, json: data}
	return app.doc, nil
}

func (app *Application) invalidateDoc() {
	app.docMu.Lock()
	app.doc = nil
	app.docMu.Unlock()
}

func buildOperation(rt *Route, method string, builder *schemaBuilder) *openapi3.Operation {
	op := &openapi3.Operation{
		Summary:     rt.summary,
		Description: rt.description,
		Tags:        rt.tags,
		Deprecated:  rt.deprecated,
		OperationID: operationID(rt, method),
	}

	for _, name := range rt.paramNames {
		p := openapi3.NewPathParameter(name)
		p.Schema = openapi3.NewSchemaRef("", converterSchema(rt.converters[name]))
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: p})
	}
	for _, dp := range rt.parameters {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: declaredParameter(dp, builder)})
	}

	if rt.payload != nil {
		body := openapi3.NewRequestBody().
			WithJSONSchemaRef(builder.refFor(reflect.TypeOf(rt.payload))).
			WithRequired(true)
		op.RequestBody = &openapi3.RequestBodyRef{Value: body}
	}

	responses := &openapi3.Responses{}
	statuses := make([]int, 0, len(rt.responses))
	for status := range rt.responses {
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)
	for _, status := range statuses {
		doc := rt.responses[status]
		description := doc.description
		if description == "" {
			description = http.StatusText(status)
		}
		response := openapi3.NewResponse().WithDescription(description)
		if doc.model != nil {
			response = response.WithJSONSchemaRef(builder.refFor(reflect.TypeOf(doc.model)))
		}
		responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: response})
	}
	if responses.Len() == 0 {
		responses.Set("200", &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Successful Response")})
	}
	op.Responses = responses
	return op
}

func declaredParameter(dp Parameter, builder *schemaBuilder) *openapi3.Parameter {
	var p *openapi3.Parameter
	switch dp.In {
	case InHeader:
		p = openapi3.NewHeaderParameter(dp.Name)
	case InCookie:
		p = openapi3.NewCookieParameter(dp.Name)
	case InPath:
		p = openapi3.NewPathParameter(dp.Name)
	default:
		p = openapi3.NewQueryParameter(dp.Name)
	}
	p.Required = dp.Required || dp.In == InPath
	p.Deprecated = dp.Deprecated
	p.Description = dp.Description
	if dp.Type != nil {
		p.Schema = builder.refFor(reflect.TypeOf(dp.Type))
	} else {
		p.Schema = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	}
	return p
}

func operationID(rt *Route, method string) string {
	if rt.name != "" {
		return rt.name
	}
	return fmt.Sprintf("[%s]_%s", method, rt.path)
}

func converterSchema(c Converter) *openapi3.Schema {
	switch c.(type) {
	case IntConverter:
		return openapi3.NewIntegerSchema()
	case FloatConverter:
		return openapi3.NewFloat64Schema()
	case UUIDConverter:
		s := openapi3.NewStringSchema()
		s.Format = "uuid"
		return s
	case DatetimeConverter:
		s := openapi3.NewStringSchema()
		s.Format = "date-time"
		return s
	default:
		return openapi3.NewStringSchema()
	}
}

// registerDocsRoutes adds /openapi.json and the /docs viewer when docs are
// configured, skipping paths the user already routed.
func (app *Application) registerDocsRoutes() {
	if app.config.Docs == nil {
		return
	}
	if !app.hasRoute("/openapi.json") {
		app.Get("/openapi.json", app.serveAPIDocument).Hidden()
	}
	if !app.hasRoute("/docs") {
		app.Get("/docs", app.serveDocsPage).Hidden()
	}
}

func (app *Application) hasRoute(path string) bool {
	for _, rt := range app.routes {
		if rt.path == path {
			return true
		}
	}
	return false
}

func (app *Application) serveAPIDocument(r *Request) (*Response, error) {
	data, err := app.APIDocumentJSON()
	if err != nil {
		return nil, err
	}
	resp := newResponse(data, http.StatusOK)
	resp.mediaType = "application/json"
	return resp, nil
}

func (app *Application) serveDocsPage(r *Request) (*Response, error) {
	page := fmt.Sprintf(docsPageHTML, app.config.Docs.Title)
	return HTML(http.StatusOK, page), nil
}

const docsPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>%s</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.json',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
