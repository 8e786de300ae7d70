package vespa

import (
	"archive/zip"
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

//go:embed schemas/services.xml schemas/wikidoc.sd.tmpl
var schemaFS embed.FS

// keywordFields are exact-match attributes of every wiki document.
var keywordFields = []string{
	domain.FieldID,
	domain.FieldWiki,
	domain.FieldSpace,
	domain.FieldLang,
	domain.FieldType,
	domain.FieldVersion,
	domain.FieldAuthor,
	domain.FieldCreator,
	domain.FieldDate,
	domain.FieldCreationDate,
	domain.FieldHidden,
	domain.FieldMimeType,
	domain.FieldObject,
	domain.FieldNumber,
	domain.FieldPropertyName,
}

// textFields are tokenized per language.
var textFields = []string{
	domain.FieldTitle,
	domain.FieldName,
	domain.FieldFullName,
	domain.FieldFilename,
	domain.FieldFullText,
}

// SchemaFields lists every field of the wikidoc schema deployed for languages.
func SchemaFields(languages []string) []string {
	fields := append([]string(nil), keywordFields...)
	for _, lang := range languages {
		for _, f := range domain.LocalizedFields {
			fields = append(fields, domain.LocalizedField(f, lang))
		}
	}
	return fields
}

// Deployer pushes the wiki application package to a Vespa config server.
type Deployer struct {
	endpoint   string
	httpClient *http.Client
}

// NewDeployer creates a deployer for the config server at endpoint
// (e.g., http://localhost:19071).
func NewDeployer(endpoint string) (*Deployer, error) {
	endpoint, err := validateEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	return &Deployer{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Deploy generates the schema for languages and activates it.
func (d *Deployer) Deploy(ctx context.Context, languages []string) error {
	if len(languages) == 0 {
		return fmt.Errorf("%w: no languages to deploy", domain.ErrInvalidInput)
	}

	schema, err := generateSchema(languages)
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}
	services, err := schemaFS.ReadFile("schemas/services.xml")
	if err != nil {
		return fmt.Errorf("failed to read services.xml: %w", err)
	}
	zipData, err := createAppPackage(services, schema)
	if err != nil {
		return fmt.Errorf("failed to create app package: %w", err)
	}

	deployURL := d.endpoint + "/application/v2/tenant/default/prepareandactivate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deployURL, bytes.NewReader(zipData))
	if err != nil {
		return fmt.Errorf("failed to create deploy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/zip")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: deployment request failed: %v", domain.ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("deployment failed with status %s: %s", resp.Status, string(body))
	}
	return nil
}

// Deployed reports whether an application is active on the config server.
func (d *Deployer) Deployed(ctx context.Context) (bool, error) {
	statusURL := d.endpoint + "/application/v2/tenant/default/application/default"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return false, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("failed to get application status: %s - %s", resp.Status, string(body))
	}
	return true, nil
}

func generateSchema(languages []string) ([]byte, error) {
	tmplContent, err := schemaFS.ReadFile("schemas/wikidoc.sd.tmpl")
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("schema").Parse(string(tmplContent))
	if err != nil {
		return nil, err
	}

	defaults := make([]string, 0, len(languages)*2)
	for _, lang := range languages {
		defaults = append(defaults,
			domain.LocalizedField(domain.FieldTitle, lang),
			domain.LocalizedField(domain.FieldFullText, lang))
	}

	data := struct {
		Keywords      []string
		Texts         []string
		Languages     []string
		DefaultFields string
	}{
		Keywords:      keywordFields,
		Texts:         textFields,
		Languages:     languages,
		DefaultFields: strings.Join(defaults, ", "),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func createAppPackage(services, schema []byte) ([]byte, error) {
	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	for _, entry := range []struct {
		name string
		data []byte
	}{
		{"services.xml", services},
		{"schemas/" + docType + ".sd", schema},
	} {
		w, err := zipWriter.Create(entry.name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(entry.data); err != nil {
			return nil, err
		}
	}

	if err := zipWriter.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// validateEndpoint accepts only http(s) URLs and strips a trailing slash.
func validateEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("%w: empty vespa endpoint", domain.ErrInvalidInput)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: vespa endpoint: %v", domain.ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: vespa endpoint must be http or https, got %q", domain.ErrInvalidInput, endpoint)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: vespa endpoint has no host", domain.ErrInvalidInput)
	}
	return strings.TrimSuffix(endpoint, "/"), nil
}
