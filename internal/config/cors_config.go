package config

import "strings"

const allowedOriginsVar = "ALLOWED_ORIGINS"

type Cors struct {
	values *Values
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

// GetAllowedOrigins reads a comma separated ALLOWED_ORIGINS list, falling back
// to the config file and then to the local Next.js dev origin.
func (c Cors) GetAllowedOrigins() AllowedOrigins {
	origins := c.values.AllowedOrigins
	if env := GetEnv(allowedOriginsVar, ""); env != "" {
		origins = strings.Split(env, ",")
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	allowed := AllowedOrigins{}
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = nullValue{}
		}
	}
	return allowed
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, OPTIONS"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
