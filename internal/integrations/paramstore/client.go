package paramstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

var (
	// ErrNotFound is returned when the parameter does not exist.
	ErrNotFound = errors.New("paramstore: parameter not found")
	// ErrEmptyValue is returned when the parameter holds no usable value.
	ErrEmptyValue = errors.New("paramstore: parameter has no value")
)

// ssmAPI is the subset of *ssm.Client used here.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SecretReader reads credentials, such as the Databricks token, from AWS
// Systems Manager Parameter Store. It satisfies genie.Getter.
type SecretReader struct {
	api ssmAPI
}

func New(api ssmAPI) (*SecretReader, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &SecretReader{api: api}, nil
}

// GetParameter returns the decrypted, whitespace-trimmed value of the named
// parameter. Credentials are expected as SecureString; other types are read
// but logged.
func (r *SecretReader) GetParameter(ctx context.Context, name string) (string, error) {
	if r == nil || r.api == nil {
		return "", errors.New("paramstore: reader not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	out, err := r.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var nf *types.ParameterNotFound
		if errors.As(err, &nf) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil {
		return "", fmt.Errorf("%w: %s", ErrEmptyValue, name)
	}

	p := out.Parameter
	if p.Type != types.ParameterTypeSecureString {
		slog.WarnContext(ctx, "credential parameter is not a SecureString",
			"name", name, "type", string(p.Type), "version", p.Version)
	}
	value := strings.TrimSpace(aws.ToString(p.Value))
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyValue, name)
	}
	return value, nil
}
