package models

import (
	"github.com/uptrace/bun"
)

type Config struct {
	bun.BaseModel `bun:"table:config"`
	Key           string `bun:"key,pk" json:"key"`
	Value         string `bun:"value" json:"value"`
}

// DeploymentConfig is the json document stored under the deployment-data key.
type DeploymentConfig struct {
	DeploymentData DeploymentSettings `json:"deploymentData"`
}
