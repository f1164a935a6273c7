package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelFile 노선 모델 설정 파일 (YAML)
//
//	version: v2
//	order: {p: 2, d: 1, q: 1}
//	horizon: 7
type ModelFile struct {
	Version         string     `yaml:"version" json:"version"`
	Order           ModelOrder `yaml:"order" json:"order"`
	Horizon         int        `yaml:"horizon" json:"horizon"`
	RouteLimit      int        `yaml:"route_limit" json:"route_limit"`
	MinRouteHistory int        `yaml:"min_route_history" json:"min_route_history"`
}

// ModelOrder ARIMA 차수
type ModelOrder struct {
	P int `yaml:"p" json:"p"`
	D int `yaml:"d" json:"d"`
	Q int `yaml:"q" json:"q"`
}

// LoadModelFile reads and strictly decodes a model file.
// KnownFields(true): 오타/미사용 필드는 즉시 실패
func LoadModelFile(path string) (*ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var mf ModelFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&mf); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if mf.Order.P < 0 || mf.Order.D < 0 || mf.Order.Q < 0 {
		return nil, fmt.Errorf("order must be non-negative")
	}
	if mf.Horizon < 0 || mf.RouteLimit < 0 || mf.MinRouteHistory < 0 {
		return nil, fmt.Errorf("horizon, route_limit and min_route_history must be non-negative")
	}

	return &mf, nil
}

// Hash returns the SHA-256 of the canonical JSON encoding.
// struct 사용으로 필드 순서 고정 → 해시 재현성 보장
func (m *ModelFile) Hash() (string, error) {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// applyModelFile overrides forecast settings and tags the model version
// with the first 8 hex characters of the file hash.
func (c *Config) applyModelFile(path string) error {
	mf, err := LoadModelFile(path)
	if err != nil {
		return err
	}

	hash, err := mf.Hash()
	if err != nil {
		return err
	}

	c.Forecast.P, c.Forecast.D, c.Forecast.Q = mf.Order.P, mf.Order.D, mf.Order.Q
	if mf.Horizon > 0 {
		c.Forecast.Horizon = mf.Horizon
	}
	if mf.RouteLimit > 0 {
		c.Forecast.RouteLimit = mf.RouteLimit
	}
	if mf.MinRouteHistory > 0 {
		c.Forecast.MinRouteHistory = mf.MinRouteHistory
	}
	if mf.Version != "" {
		c.Forecast.ModelVersion = mf.Version
	}

	c.Forecast.ModelHash = hash
	c.Forecast.ModelVersion = fmt.Sprintf("%s-%s", c.Forecast.ModelVersion, hash[:8])
	return nil
}
