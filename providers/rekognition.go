package providers

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// RekognitionProvider detects food labels with AWS Rekognition. Primary
// provider in the photo chain.
type RekognitionProvider struct {
	client *rekognition.Client
}

func NewRekognitionProvider(cfg aws.Config) *RekognitionProvider {
	return &RekognitionProvider{client: rekognition.NewFromConfig(cfg)}
}

func (r *RekognitionProvider) Name() string { return "rekognition" }

// Try returns the top labels for the captured image. Rekognition reports
// labels only; macros are left for the nutrition resolver.
func (r *RekognitionProvider) Try(ctx context.Context, img ImageRef) ([]Detection, error) {
	if img.Bucket == "" || img.Key == "" {
		return nil, errors.New("image not available in object storage")
	}

	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image: &types.Image{
			S3Object: &types.S3Object{
				Bucket: aws.String(img.Bucket),
				Name:   aws.String(img.Key),
			},
		},
		MaxLabels:     aws.Int32(5),
		MinConfidence: aws.Float32(55),
	})
	if err != nil {
		return nil, err
	}

	var dets []Detection
	for _, l := range out.Labels {
		if l.Name == nil {
			continue
		}
		conf := float64(aws.ToFloat32(l.Confidence)) / 100
		dets = append(dets, Detection{Label: *l.Name, Confidence: conf})
	}
	return dets, nil
}
