package starapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const maxFormMemory = 32 << 20

// Payload decodes the request body into dst based on the Content-Type
// header. JSON, YAML and TOML bodies are supported; an absent content type
// is treated as JSON. Failures are reported as *InvalidBodyDataError, which
// the router turns into a 400 response.
func (r *Request) Payload(dst any) error {
	body, err := r.Body()
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}

	mediaType := "application/json"
	if ct := r.raw.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err = mime.ParseMediaType(ct)
		if err != nil {
			return &InvalidBodyDataError{Format: ct, Err: err}
		}
	}

	switch mediaType {
	case "application/json", "text/json":
		if err := json.Unmarshal(body, dst); err != nil {
			return &InvalidBodyDataError{Format: "json", Err: err}
		}
	case "application/yaml", "application/x-yaml", "text/yaml":
		if err := yaml.Unmarshal(body, dst); err != nil {
			return &InvalidBodyDataError{Format: "yaml", Err: err}
		}
	case "application/toml", "text/toml":
		if err := toml.Unmarshal(body, dst); err != nil {
			return &InvalidBodyDataError{Format: "toml", Err: err}
		}
	default:
		return &InvalidBodyDataError{Format: mediaType}
	}
	return nil
}

type formData struct {
	values url.Values
	files  map[string][]*multipart.FileHeader
}

// FormValues parses an application/x-www-form-urlencoded or
// multipart/form-data body and returns its fields. The body stays available
// through Body afterwards.
func (r *Request) FormValues() (url.Values, error) {
	form, err := r.loadForm()
	if err != nil {
		return nil, err
	}
	return form.values, nil
}

// FormFile returns the first uploaded file for the given multipart field,
// or http.ErrMissingFile.
func (r *Request) FormFile(name string) (*multipart.FileHeader, error) {
	form, err := r.loadForm()
	if err != nil {
		return nil, err
	}
	if fhs := form.files[name]; len(fhs) > 0 {
		return fhs[0], nil
	}
	return nil, http.ErrMissingFile
}

func (r *Request) loadForm() (*formData, error) {
	if r.form != nil {
		return r.form, nil
	}

	body, err := r.Body()
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	mediaType, params, err := mime.ParseMediaType(r.raw.Header.Get("Content-Type"))
	if err != nil {
		return nil, &InvalidBodyDataError{Format: r.raw.Header.Get("Content-Type"), Err: err}
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, &InvalidBodyDataError{Format: "form", Err: err}
		}
		r.form = &formData{values: values, files: map[string][]*multipart.FileHeader{}}
	case "multipart/form-data":
		boundary := params["boundary"]
		if boundary == "" {
			return nil, &InvalidBodyDataError{Format: "multipart", Err: http.ErrMissingBoundary}
		}
		mf, err := multipart.NewReader(bytes.NewReader(body), boundary).ReadForm(maxFormMemory)
		if err != nil {
			return nil, &InvalidBodyDataError{Format: "multipart", Err: err}
		}
		r.form = &formData{values: url.Values(mf.Value), files: mf.File}
	default:
		return nil, &InvalidBodyDataError{Format: mediaType}
	}
	return r.form, nil
}
