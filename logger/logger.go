package logger

import "go.uber.org/zap"

// Init builds the process logger and installs it as zap's global,
// so packages log through zap.S() / zap.L().
func Init(development bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l)
	return l.Sugar(), nil
}
