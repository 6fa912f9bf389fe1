package mocks

//go:generate mockgen -destination=./mock_endpoint.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/exchange Endpoint
//go:generate mockgen -destination=./mock_sink.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/log Sink
//go:generate mockgen -destination=./mock_source.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/marketdata Source
//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-autotrader/internal/trading/engine Strategy,Journal
