package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"erpsaas/internal/apperr"
	"erpsaas/internal/config"
	"erpsaas/internal/model"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// secretVersions is the subset of the Secret Manager client used here.
type secretVersions interface {
	GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

type secretManagerAdminSecretRepo struct {
	client     secretVersions
	projectID  string
	secretName string
}

// NewSecretManagerAdminSecretRepo keeps the admin secret as JSON versions of
// one Google Secret Manager secret.
func NewSecretManagerAdminSecretRepo(ctx context.Context, cfg *config.Config) (AdminSecretRepository, func() error, error) {
	if cfg.GCPProjectID == "" {
		return nil, nil, fmt.Errorf("GCP Project ID is not set for the secretmanager admin secret backend")
	}
	var opts []option.ClientOption
	if cfg.GCPCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCPCredentialsFile))
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	repo := &secretManagerAdminSecretRepo{client: client, projectID: cfg.GCPProjectID, secretName: cfg.AdminSecretName}
	return repo, client.Close, nil
}

func (r *secretManagerAdminSecretRepo) secretPath() string {
	return fmt.Sprintf("projects/%s/secrets/%s", r.projectID, r.secretName)
}

func (r *secretManagerAdminSecretRepo) Get(ctx context.Context) (*model.AdminSecret, error) {
	res, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: r.secretPath() + "/versions/latest",
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperr.NotFound("admin secret %s has no versions", r.secretName)
		}
		return nil, apperr.Internal("access admin secret", err)
	}
	var s model.AdminSecret
	if err := json.Unmarshal(res.GetPayload().GetData(), &s); err != nil {
		return nil, apperr.Internal("decode admin secret", err)
	}
	s.Key = model.AdminSecretKey
	return &s, nil
}

func (r *secretManagerAdminSecretRepo) Upsert(ctx context.Context, s *model.AdminSecret) error {
	s.Key = model.AdminSecretKey
	s.UpdatedAt = now()

	if _, err := r.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{Name: r.secretPath()}); err != nil {
		if status.Code(err) != codes.NotFound {
			return apperr.Internal("get admin secret", err)
		}
		_, err := r.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
			Parent:   "projects/" + r.projectID,
			SecretId: r.secretName,
			Secret: &secretmanagerpb.Secret{
				Replication: &secretmanagerpb.Replication{
					Replication: &secretmanagerpb.Replication_Automatic_{
						Automatic: &secretmanagerpb.Replication_Automatic{},
					},
				},
			},
		})
		if err != nil {
			return apperr.Internal("create admin secret", err)
		}
	}

	data, err := json.Marshal(s)
	if err != nil {
		return apperr.Internal("encode admin secret", err)
	}
	_, err = r.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  r.secretPath(),
		Payload: &secretmanagerpb.SecretPayload{Data: data},
	})
	if err != nil {
		return apperr.Internal("add admin secret version", err)
	}
	return nil
}
