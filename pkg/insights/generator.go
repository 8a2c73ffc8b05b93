package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/config"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/aiplatform/v1"
	"google.golang.org/api/option"
)

var ErrUnavailable = errors.New("text generation is not configured")

// Generator turns a prompt into free text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type DisabledGenerator struct{}

func (DisabledGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", ErrUnavailable
}

// VertexGenerator calls generateContent of a Vertex AI publisher model.
type VertexGenerator struct {
	models *aiplatform.ProjectsLocationsPublishersModelsService
	model  string
}

// NewGenerator returns a Vertex AI backed generator, or DisabledGenerator when insights are
// switched off or credentials cannot be found.
func NewGenerator(ctx context.Context, cfg config.Insights) Generator {
	if !cfg.Enabled || cfg.Project == "" {
		log.Info("Insights are disabled")
		return DisabledGenerator{}
	}
	generator, err := NewVertexGenerator(ctx, cfg)
	if err != nil {
		log.Warnf("Insights are unavailable: %v", err)
		return DisabledGenerator{}
	}
	return generator
}

func NewVertexGenerator(ctx context.Context, cfg config.Insights) (*VertexGenerator, error) {
	client, err := google.DefaultClient(ctx, aiplatform.CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("unable to find default Google credentials: %w", err)
	}
	service, err := aiplatform.NewService(ctx,
		option.WithHTTPClient(client),
		option.WithEndpoint(fmt.Sprintf("https://%s-aiplatform.googleapis.com/", cfg.Location)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create Vertex AI client: %w", err)
	}
	return &VertexGenerator{
		models: service.Projects.Locations.Publishers.Models,
		model:  fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", cfg.Project, cfg.Location, cfg.Model),
	}, nil
}

func (g *VertexGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	request := &aiplatform.GoogleCloudAiplatformV1GenerateContentRequest{
		Contents: []*aiplatform.GoogleCloudAiplatformV1Content{
			{
				Role:  "user",
				Parts: []*aiplatform.GoogleCloudAiplatformV1Part{{Text: prompt}},
			},
		},
	}
	response, err := g.models.GenerateContent(g.model, request).Context(ctx).Do()
	if err != nil {
		err := fmt.Errorf("generateContent failed: %w", err)
		log.Error(err)
		return "", err
	}
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", nil
	}
	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return strings.TrimSpace(text.String()), nil
}
