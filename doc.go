// Package octopod runs integration tests against multi-service containerized applications.
//
// Applications are declared as named sets of services (see the servicedef package), and tests
// are declared as functions bound to an application by name. For every test, the engine
// provisions a fresh network with one container per service, runs the test while collecting
// the services' output, and removes everything it created afterward:
//
//	apps := []servicedef.ApplicationConfig{
//		servicedef.NewApplication("web",
//			servicedef.NewService("api", "example/api:1.4").WithEnv("DB_HOST", "db"),
//			servicedef.NewService("db", "postgres:16").WithEnv("POSTGRES_PASSWORD", "secret"),
//		),
//	}
//	tests := []podtest.TestDeclaration{
//		{Name: "api is reachable", App: "web", Func: func(t *podtest.T) {
//			_, err := t.Service("api").IP(t.Context())
//			require.NoError(t, err)
//		}},
//	}
//	engine, err := octopod.New("unix:///run/podman/podman.sock", apps, tests)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//	if !engine.Run(context.Background()) {
//		os.Exit(1)
//	}
package octopod
