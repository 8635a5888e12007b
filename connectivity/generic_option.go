package connectivity

import (
	"fmt"
	"net/url"
)

// GenericOption creates an extension option from its type name and
// arguments, for callers that only have configuration strings. Enum options
// take their literal (case-sensitive); IasOptions take a method name followed
// by its arguments. Extra arguments are ignored.
func GenericOption(name string, args ...any) (any, error) {
	switch name {
	case "BusinessRulesOptions":
		return enumOption(name, args, AuthoringAPI, ExecutionAPI)
	case "WorkflowOptions":
		return enumOption(name, args, WorkflowRESTAPI, WorkflowODataAPI)
	case "BusinessLoggingOptions":
		return enumOption(name, args, BusinessLoggingConfigAPI, BusinessLoggingReadAPI, BusinessLoggingTextAPI, BusinessLoggingWriteAPI)
	case "IasOptions":
		return iasOption(args)
	default:
		return nil, fmt.Errorf("unknown option type %q", name)
	}
}

func enumOption[T ~string](name string, args []any, values ...T) (any, error) {
	literal, err := stringArg(name, args, 0)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if string(v) == literal {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%q is not a valid %s value", literal, name)
}

func iasOption(args []any) (any, error) {
	method, err := stringArg("IasOptions", args, 0)
	if err != nil {
		return nil, err
	}
	switch method {
	case "withTargetUri":
		if len(args) > 1 {
			if u, ok := args[1].(*url.URL); ok && u != nil {
				return IasTargetURI(u.String()), nil
			}
		}
		uri, err := stringArg(method, args, 1)
		if err != nil {
			return nil, err
		}
		return IasTargetURI(uri), nil
	case "withApplicationName":
		appName, err := stringArg(method, args, 1)
		if err != nil {
			return nil, err
		}
		return IasApplicationName(appName), nil
	case "withConsumerClient":
		clientID, err := stringArg(method, args, 1)
		if err != nil {
			return nil, err
		}
		if len(args) < 3 {
			return IasConsumerClient(clientID), nil
		}
		tenantID, err := stringArg(method, args, 2)
		if err != nil {
			return nil, err
		}
		return IasConsumerClient(clientID, tenantID), nil
	case "withoutTokenForTechnicalProviderUser":
		return IasNoTokenForTechnicalProviderUser{}, nil
	default:
		return nil, fmt.Errorf("unknown IasOptions method %q", method)
	}
}

func stringArg(name string, args []any, i int) (string, error) {
	if len(args) <= i {
		return "", fmt.Errorf("%s: expected at least %d argument(s), got %d", name, i+1, len(args))
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%s: argument %d must be a string, got %T", name, i+1, args[i])
	}
	return s, nil
}
