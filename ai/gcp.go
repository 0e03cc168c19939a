package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// GCPLabeler names images with Cloud Vision label detection.
type GCPLabeler struct {
	client *vision.ImageAnnotatorClient
}

// ClientOptionsFromEnv reads GOOGLE_APPLICATION_CREDENTIALS(_JSON), either a
// path or inline JSON. Without either the default credentials are used.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func NewGCPLabeler(ctx context.Context, opts ...option.ClientOption) (*GCPLabeler, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &GCPLabeler{client: client}, nil
}

func (g *GCPLabeler) Label(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", ErrBadImage
	}
	req := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{{
		Image:    &visionpb.Image{Content: image},
		Features: []*visionpb.Feature{{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: 5}},
	}}}
	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	return topLabel(resp)
}

func (g *GCPLabeler) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

// topLabel picks the highest scoring label of the first response.
func topLabel(resp *visionpb.BatchAnnotateImagesResponse) (string, error) {
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", ErrNoLabel
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision: %s", r0.Error.Message)
	}
	var best *visionpb.EntityAnnotation
	for _, a := range r0.LabelAnnotations {
		if a == nil || strings.TrimSpace(a.Description) == "" {
			continue
		}
		if best == nil || a.Score > best.Score {
			best = a
		}
	}
	if best == nil {
		return "", ErrNoLabel
	}
	label := CleanLabel(best.Description)
	if label == "" {
		return "", ErrNoLabel
	}
	return label, nil
}
