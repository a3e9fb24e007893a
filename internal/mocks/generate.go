package mocks

//go:generate mockery --name Standardizer --srcpkg github.com/aevon-lab/hookline/internal/normalization --output ./normalization --outpkg normalizationmocks --with-expecter
