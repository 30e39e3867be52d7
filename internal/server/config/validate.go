package config

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/cryptox"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"golang.org/x/crypto/bcrypt"
)

// Validate rejects configurations the server cannot run safely with.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.GRPCAddr, validation.Required),
		validation.Field(&c.DatabaseDSN, validation.Required),
		validation.Field(&c.UserSigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.AdminSigningKey,
			validation.Required,
			validation.Length(16, 0),
			validation.By(differentFrom(c.UserSigningKey)),
		),
		validation.Field(&c.TokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.AdminEmail, validation.Required, is.Email),
		validation.Field(&c.AdminPasswordHash, validation.Required),
		validation.Field(&c.PasswordHashAlgorithm,
			validation.Required,
			validation.In(string(cryptox.Argon2id), string(cryptox.Bcrypt)),
		),
		validation.Field(&c.BcryptCost, validation.Required, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
		validation.Field(&c.AssetBackend, validation.Required, validation.In("s3", "memory")),
		validation.Field(&c.AssetFolder, validation.Required),
		validation.Field(&c.AssetPublicBaseURL, validation.Required, is.URL),
		validation.Field(&c.AssetTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.MaxUploadBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.S3Bucket, requiredFor(c.AssetBackend, "s3")...),
		validation.Field(&c.S3Region, requiredFor(c.AssetBackend, "s3")...),
	)
}

func requiredFor(backend, want string) []validation.Rule {
	if backend != want {
		return nil
	}
	return []validation.Rule{validation.Required}
}

func differentFrom(other string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != "" && s == other {
			return errors.New("must differ from the user signing key")
		}
		return nil
	}
}
