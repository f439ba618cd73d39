package usecase

import (
	"track-downloader/internal/config"
	"track-downloader/internal/heuristic"
	"track-downloader/internal/ports"
	"track-downloader/internal/selector"
	"track-downloader/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Library   adapters.LibraryService
	Browser   adapters.BrowserService
	Selectors adapters.SelectorService
}

type Params struct {
	fx.In

	Logger     *zap.Logger
	Config     *config.Config
	Browser    ports.BrowserManager
	Registry   *selector.Registry
	Heuristics *heuristic.Set
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Library:   factory.CreateLibraryService(),
		Browser:   factory.CreateBrowserService(),
		Selectors: factory.CreateSelectorService(),
	}
}
