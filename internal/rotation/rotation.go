// Package rotation implements the signing key rotation procedure: generate a
// fresh RSA key pair, publish the public half to the CDN key registry, store
// the private half in the secret store and flip the active/inactive role
// parameters. The procedure is sequential with no rollback; on any failure it
// aborts and leaves provider-side state for the operator to inspect. It is
// not safe to run two rotations concurrently.
//
// The inactive-secret-arn parameter keeps naming the same secret slot across
// rotations even though that slot becomes the active one at the pivot; a
// failed later run can therefore overwrite the live private key in step 5
// before anything has been promoted.
package rotation

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/filebroker/internal/common"
	"github.com/dmitrijs2005/filebroker/internal/logging"
)

// DefaultParamPrefix is the parameter-store namespace holding the role
// pointers.
const DefaultParamPrefix = "/cloudfront-signer"

// KeyRegistry is the slice of the CDN API the rotation needs.
// *cloudfront.Client satisfies it.
type KeyRegistry interface {
	CreatePublicKey(ctx context.Context, params *cloudfront.CreatePublicKeyInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreatePublicKeyOutput, error)
	GetKeyGroupConfig(ctx context.Context, params *cloudfront.GetKeyGroupConfigInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetKeyGroupConfigOutput, error)
	UpdateKeyGroup(ctx context.Context, params *cloudfront.UpdateKeyGroupInput, optFns ...func(*cloudfront.Options)) (*cloudfront.UpdateKeyGroupOutput, error)
	ListKeyGroups(ctx context.Context, params *cloudfront.ListKeyGroupsInput, optFns ...func(*cloudfront.Options)) (*cloudfront.ListKeyGroupsOutput, error)
	GetPublicKeyConfig(ctx context.Context, params *cloudfront.GetPublicKeyConfigInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetPublicKeyConfigOutput, error)
	DeletePublicKey(ctx context.Context, params *cloudfront.DeletePublicKeyInput, optFns ...func(*cloudfront.Options)) (*cloudfront.DeletePublicKeyOutput, error)
}

// SecretStore writes the new private key into the inactive secret slot.
// *secretsmanager.Client satisfies it.
type SecretStore interface {
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
}

// ParameterStore reads and flips the role pointers.
// *ssm.Client satisfies it.
type ParameterStore interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// Config controls naming. KeyGroupID may be empty, in which case the first
// key group in the registry is used as the inactive group.
type Config struct {
	ProjectName string
	ParamPrefix string
	KeyGroupID  string
}

// Result reports what the completed rotation did.
type Result struct {
	NewKeyID            string
	PreviousActiveKeyID string
	RetiredKeyID        string
}

// Rotator runs the rotation procedure.
type Rotator struct {
	cdn     KeyRegistry
	secrets SecretStore
	params  ParameterStore
	logger  logging.Logger
	cfg     Config

	now         func() time.Time
	generateKey func() (*rsa.PrivateKey, error)
}

func NewRotator(cdn KeyRegistry, secrets SecretStore, params ParameterStore,
	logger logging.Logger, cfg Config) *Rotator {
	if cfg.ParamPrefix == "" {
		cfg.ParamPrefix = DefaultParamPrefix
	}
	return &Rotator{
		cdn:     cdn,
		secrets: secrets,
		params:  params,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
		generateKey: func() (*rsa.PrivateKey, error) {
			return rsa.GenerateKey(rand.Reader, 2048)
		},
	}
}

func (r *Rotator) paramName(suffix string) string {
	return r.cfg.ParamPrefix + "/" + suffix
}

// Run executes the eight rotation steps in order. Until the promotion in
// step 6 commits, the previously active pair stays fully signable; everything
// before that point only prepares the inactive slot, everything after is
// pointer handover and cleanup.
func (r *Rotator) Run(ctx context.Context) (*Result, error) {
	// step 1: current role pointers
	inactiveKeyID, err := r.getParam(ctx, r.paramName("inactive-key-id"))
	if err != nil {
		return nil, fmt.Errorf("%w: reading inactive key id: %v", common.ErrDependency, err)
	}
	inactiveSecretARN, err := r.getParam(ctx, r.paramName("inactive-secret-arn"))
	if err != nil {
		return nil, fmt.Errorf("%w: reading inactive secret arn: %v", common.ErrDependency, err)
	}
	activeKeyID, err := r.getParam(ctx, r.paramName("active-key-id"))
	if err != nil {
		return nil, fmt.Errorf("%w: reading active key id: %v", common.ErrDependency, err)
	}
	keyGroupID, err := r.resolveKeyGroupID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving inactive key group: %v", common.ErrDependency, err)
	}
	r.logger.Info(ctx, "rotation started",
		"inactive_key_id", inactiveKeyID, "active_key_id", activeKeyID, "key_group_id", keyGroupID)

	// step 2: new key pair
	key, err := r.generateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: generating key pair: %v", common.ErrSigning, err)
	}
	privatePEM := encodePrivateKeyPEM(key)
	publicPEM, err := encodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding public key: %v", common.ErrSigning, err)
	}

	// step 3: register the new public key
	keyName := fmt.Sprintf("%s-key-%d", r.cfg.ProjectName, r.now().Unix())
	created, err := r.cdn.CreatePublicKey(ctx, &cloudfront.CreatePublicKeyInput{
		PublicKeyConfig: &cftypes.PublicKeyConfig{
			CallerReference: aws.String(uuid.NewString()),
			Name:            aws.String(keyName),
			EncodedKey:      aws.String(publicPEM),
			Comment:         aws.String("Rotated key"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: registering public key: %v", common.ErrDependency, err)
	}
	newKeyID := aws.ToString(created.PublicKey.Id)
	r.logger.Info(ctx, "public key registered", "key_id", newKeyID, "name", keyName)

	// step 4: point the inactive key group at the new key
	groupConfig, err := r.cdn.GetKeyGroupConfig(ctx, &cloudfront.GetKeyGroupConfigInput{
		Id: aws.String(keyGroupID),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reading key group config: %v", common.ErrDependency, err)
	}
	_, err = r.cdn.UpdateKeyGroup(ctx, &cloudfront.UpdateKeyGroupInput{
		Id:      aws.String(keyGroupID),
		IfMatch: groupConfig.ETag,
		KeyGroupConfig: &cftypes.KeyGroupConfig{
			Name:    aws.String(r.cfg.ProjectName + "-inactive-key-group"),
			Items:   []string{newKeyID},
			Comment: aws.String("Updated with new rotated key"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: updating key group: %v", common.ErrDependency, err)
	}

	// step 5: store the private half in the inactive secret slot
	_, err = r.secrets.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(inactiveSecretARN),
		SecretString: aws.String(privatePEM),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: storing private key: %v", common.ErrDependency, err)
	}

	// step 6: the pivot. After these writes the new pair is active.
	if err := r.putParam(ctx, r.paramName("active-key-id"), newKeyID); err != nil {
		return nil, fmt.Errorf("%w: promoting key id: %v", common.ErrDependency, err)
	}
	if err := r.putParam(ctx, r.paramName("active-secret-arn"), inactiveSecretARN); err != nil {
		return nil, fmt.Errorf("%w: promoting secret arn: %v", common.ErrDependency, err)
	}
	if err := r.putParam(ctx, r.paramName("last-rotation"), fmt.Sprintf("%d", r.now().Unix())); err != nil {
		return nil, fmt.Errorf("%w: recording rotation time: %v", common.ErrDependency, err)
	}
	r.logger.Info(ctx, "new key promoted to active", "key_id", newKeyID)

	// step 7: hand the previous active key down into the inactive slot
	if err := r.putParam(ctx, r.paramName("inactive-key-id"), activeKeyID); err != nil {
		return nil, fmt.Errorf("%w: demoting previous active key: %v", common.ErrDependency, err)
	}

	// step 8: retire the key the new one replaced
	oldConfig, err := r.cdn.GetPublicKeyConfig(ctx, &cloudfront.GetPublicKeyConfigInput{
		Id: aws.String(inactiveKeyID),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reading retired key config: %v", common.ErrDependency, err)
	}
	_, err = r.cdn.DeletePublicKey(ctx, &cloudfront.DeletePublicKeyInput{
		Id:      aws.String(inactiveKeyID),
		IfMatch: oldConfig.ETag,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: deleting retired key: %v", common.ErrDependency, err)
	}
	r.logger.Info(ctx, "rotation completed",
		"new_active_key_id", newKeyID, "demoted_key_id", activeKeyID, "retired_key_id", inactiveKeyID)

	return &Result{
		NewKeyID:            newKeyID,
		PreviousActiveKeyID: activeKeyID,
		RetiredKeyID:        inactiveKeyID,
	}, nil
}

func (r *Rotator) resolveKeyGroupID(ctx context.Context) (string, error) {
	if r.cfg.KeyGroupID != "" {
		return r.cfg.KeyGroupID, nil
	}
	out, err := r.cdn.ListKeyGroups(ctx, &cloudfront.ListKeyGroupsInput{})
	if err != nil {
		return "", err
	}
	if out.KeyGroupList == nil || len(out.KeyGroupList.Items) == 0 {
		return "", fmt.Errorf("no key groups registered")
	}
	return aws.ToString(out.KeyGroupList.Items[0].KeyGroup.Id), nil
}

func (r *Rotator) getParam(ctx context.Context, name string) (string, error) {
	out, err := r.params.GetParameter(ctx, &ssm.GetParameterInput{Name: aws.String(name)})
	if err != nil {
		return "", err
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}
	return *out.Parameter.Value, nil
}

func (r *Rotator) putParam(ctx context.Context, name, value string) error {
	_, err := r.params.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      ssmtypes.ParameterTypeString,
		Overwrite: aws.Bool(true),
	})
	return err
}

func encodePrivateKeyPEM(key *rsa.PrivateKey) string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))
}

func encodePublicKeyPEM(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
