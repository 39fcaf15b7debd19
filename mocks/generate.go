package mocks

//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/rxtech-lab/argo-ensemble/pkg/marketdata/provider Provider
//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/rxtech-lab/argo-ensemble/internal/storage Store
