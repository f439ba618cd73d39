package usecase

import (
	"track-downloader/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateLibraryService() adapters.LibraryService {
	return NewLibraryService(LibraryServiceParams{
		Config:     f.deps.Config,
		Logger:     f.deps.Logger,
		Browser:    f.deps.Browser,
		Registry:   f.deps.Registry,
		Heuristics: f.deps.Heuristics,
	})
}

func (f *serviceFactory) CreateBrowserService() adapters.BrowserService {
	return f.deps.Browser
}

func (f *serviceFactory) CreateSelectorService() adapters.SelectorService {
	return f.deps.Registry
}
