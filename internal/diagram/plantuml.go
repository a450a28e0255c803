package diagram

import (
	"bytes"
	"compress/flate"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gubarz/mdslides/internal/executor"
)

// plantumlAlphabet is the base64 variant used in PlantUML server URLs
const plantumlAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

var plantumlEncoding = base64.NewEncoding(plantumlAlphabet).WithPadding(base64.NoPadding)

// maxSVGSize caps a server response
const maxSVGSize = 8 << 20

// EncodePlantUML returns the deflate + PlantUML base64 form of source
func EncodePlantUML(source string) (string, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(w, source); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return plantumlEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodePlantUML reverses EncodePlantUML
func DecodePlantUML(encoded string) (string, error) {
	data, err := plantumlEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode plantuml: %w", err)
	}
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("inflate plantuml: %w", err)
	}
	return string(out), nil
}

// ============================================================================
// HTTP server backend
// ============================================================================

// PlantUMLServer renders through a PlantUML server's /svg/ endpoint
type PlantUMLServer struct {
	BaseURL string
	Client  *http.Client
}

// NewPlantUMLServer creates a server backend, e.g. for http://localhost:8080/plantuml
func NewPlantUMLServer(baseURL string, client *http.Client) *PlantUMLServer {
	if client == nil {
		client = http.DefaultClient
	}
	return &PlantUMLServer{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

// Render implements Renderer
func (s *PlantUMLServer) Render(ctx context.Context, source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", ErrEmptySource
	}
	encoded, err := EncodePlantUML(source)
	if err != nil {
		return "", fmt.Errorf("encode plantuml: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/svg/"+encoded, nil)
	if err != nil {
		return "", fmt.Errorf("plantuml request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRendererUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSVGSize))
	if err != nil {
		return "", fmt.Errorf("read plantuml response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("PlantUML Server Error: %d", resp.StatusCode)
	}
	return string(body), nil
}

// ============================================================================
// Local jar backend
// ============================================================================

// PlantUMLJar renders with `java -jar plantuml.jar -tsvg -pipe`
type PlantUMLJar struct {
	Java   string
	Jar    string
	Runner executor.Runner
}

// NewPlantUMLJar creates a jar backend. java defaults to "java".
func NewPlantUMLJar(java, jar string, runner executor.Runner) *PlantUMLJar {
	if java == "" {
		java = "java"
	}
	return &PlantUMLJar{Java: java, Jar: jar, Runner: runner}
}

// Render implements Renderer
func (j *PlantUMLJar) Render(ctx context.Context, source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", ErrEmptySource
	}
	if j.Jar == "" {
		return "", fmt.Errorf("%w: plantuml.jar not configured", ErrRendererUnavailable)
	}

	out, err := j.Runner.Run(ctx, strings.NewReader(source), j.Java, "-jar", j.Jar, "-tsvg", "-pipe")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRendererUnavailable, err)
	}
	return string(out), nil
}
