package kiln_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/kiln"
	"github.com/junioryono/kiln/internal/testutil"
)

// Types for chain depth and forward reference tests.
type (
	chainA struct {
		B *chainB `inject:""`
	}
	chainB struct {
		C *chainC `inject:""`
	}
	chainC struct{}

	cycleX struct {
		Y *cycleY `inject:""`
	}
	cycleY struct {
		Z *cycleZ `inject:""`
	}
	cycleZ struct {
		Y *cycleY `inject:""`
	}

	Mailer interface {
		Send(to string) string
	}
	SMTPMailer struct{}

	notifier struct {
		Mailer Mailer `inject:"SMTPMailer"`
	}
	missingRefNotifier struct {
		Mailer Mailer `inject:"PigeonMailer"`
	}

	// Types for resolutions started inside constructors and factories.
	lazyGreeter interface {
		Greet() string
	}
	greeterClient struct {
		Greeter lazyGreeter `inject:""`
	}
	selfResolving struct {
		inner error
	}
)

func (SMTPMailer) Send(to string) string { return "smtp:" + to }

var (
	circularAType = reflect.TypeOf(&testutil.CircularServiceA{})
	circularBType = reflect.TypeOf(&testutil.CircularServiceB{})
)

func TestResolver_DirectCycle(t *testing.T) {
	tests := []struct {
		name string
		a, b kiln.Lifetime
	}{
		{"Transient", kiln.Transient, kiln.Transient},
		{"Singleton", kiln.Singleton, kiln.Singleton},
		{"transient to singleton", kiln.Transient, kiln.Singleton},
		{"singleton to transient", kiln.Singleton, kiln.Transient},
	}

	register := func(b *testutil.ContainerBuilder, t reflect.Type, lifetime kiln.Lifetime) {
		if lifetime == kiln.Singleton {
			b.WithSingleton(t, nil)
		} else {
			b.WithTransient(t, nil)
		}
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testutil.NewContainerBuilder(t)
			register(b, circularAType, tt.a)
			register(b, circularBType, tt.b)
			c := b.Build()

			_, err := c.Resolve(circularAType)
			testutil.AssertCircularDependency(t, err, "*CircularServiceA", "*CircularServiceB", "*CircularServiceA")
			assert.Contains(t, err.Error(), "*CircularServiceA (cycle)")

			_, err = c.Resolve(circularBType)
			testutil.AssertCircularDependency(t, err, "*CircularServiceB", "*CircularServiceA", "*CircularServiceB")
		})
	}
}

func TestResolver_SelfCycle(t *testing.T) {
	selfType := reflect.TypeOf(&testutil.SelfDependent{})
	c := testutil.NewContainerBuilder(t).
		WithTransient(selfType, nil).
		Build()

	_, err := c.Resolve(selfType)
	testutil.AssertCircularDependency(t, err, "*SelfDependent", "*SelfDependent")
}

func TestResolver_IndirectCycle(t *testing.T) {
	c := kiln.New()
	require.NoError(t, kiln.AddTransient[*cycleX, *cycleX](c))
	require.NoError(t, kiln.AddTransient[*cycleY, *cycleY](c))
	require.NoError(t, kiln.AddTransient[*cycleZ, *cycleZ](c))

	_, err := kiln.Resolve[*cycleX](c)
	testutil.AssertCircularDependency(t, err, "*cycleY", "*cycleZ", "*cycleY")
}

func TestResolver_ConstructorCycle(t *testing.T) {
	c := kiln.New()
	require.NoError(t, kiln.AddSingletonFunc[*testutil.CircularServiceA](c, func(b *testutil.CircularServiceB) *testutil.CircularServiceA {
		return &testutil.CircularServiceA{B: b}
	}))
	require.NoError(t, kiln.AddSingletonFunc[*testutil.CircularServiceB](c, func(a *testutil.CircularServiceA) *testutil.CircularServiceB {
		return &testutil.CircularServiceB{A: a}
	}))

	_, err := kiln.Resolve[*testutil.CircularServiceA](c)
	testutil.AssertCircularDependency(t, err, "*CircularServiceA", "*CircularServiceB", "*CircularServiceA")
}

func TestResolver_ChainCleanup(t *testing.T) {
	t.Run("after failure", func(t *testing.T) {
		c := testutil.NewContainerBuilder(t).
			WithTransient(circularAType, nil).
			WithTransient(circularBType, nil).
			WithTransient(databaseType, testutil.NewTestDatabase).
			Build()

		_, err := c.Resolve(circularAType)
		require.True(t, kiln.IsCircularDependency(err))

		_, err = c.Resolve(databaseType)
		require.True(t, kiln.IsNotRegistered(err))
		testutil.AssertResolutionChain(t, err, "TestDatabase", "TestLogger")

		require.NoError(t, c.RegisterSingleton(loggerType, testutil.NewTestLogger))
		testutil.AssertServiceResolvable[testutil.TestDatabase](t, c)
	})

	t.Run("shared dependency is not a cycle", func(t *testing.T) {
		c := testutil.NewContainerBuilder(t).
			WithBasicServices().
			WithTransient(kiln.TypeOf[*testutil.TestServiceWithDeps](), nil).
			Build()

		// TestLogger is reached twice: directly and through TestDatabase.
		svc := testutil.AssertServiceResolvable[*testutil.TestServiceWithDeps](t, c)
		assert.NotNil(t, svc.Database)
	})

	t.Run("concurrent resolutions keep separate chains", func(t *testing.T) {
		c := testutil.NewContainerBuilder(t).
			WithBasicServices().
			WithTransient(kiln.TypeOf[*testutil.TestServiceWithDeps](), testutil.NewTestServiceWithDeps).
			WithTransient(circularAType, nil).
			WithTransient(circularBType, nil).
			Build()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := kiln.Resolve[*testutil.TestServiceWithDeps](c)
				assert.NoError(t, err)
			}()
			go func() {
				defer wg.Done()
				_, err := c.Resolve(circularAType)
				path, ok := kiln.CyclePath(err)
				if assert.True(t, ok) {
					assert.Equal(t, []string{"*CircularServiceA", "*CircularServiceB", "*CircularServiceA"}, path)
				}
			}()
		}
		wg.Wait()
	})
}

func TestResolver_ConcurrentMutualSingletons(t *testing.T) {
	c := testutil.NewContainerBuilder(t).
		WithSingleton(circularAType, nil).
		WithSingleton(circularBType, nil).
		Build()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := c.Resolve(circularAType)
			assert.True(t, kiln.IsCircularDependency(err))
		}()
		go func() {
			defer wg.Done()
			_, err := c.Resolve(circularBType)
			assert.True(t, kiln.IsCircularDependency(err))
		}()
	}
	wg.Wait()
}

func TestResolver_ForwardReference(t *testing.T) {
	mailerType := kiln.TypeOf[Mailer]()

	t.Run("resolves by name", func(t *testing.T) {
		c := kiln.New()
		require.NoError(t, kiln.AddTransient[SMTPMailer, SMTPMailer](c))
		require.NoError(t, kiln.AddTransient[*notifier, *notifier](c))

		n, err := kiln.Resolve[*notifier](c)
		require.NoError(t, err)
		require.NotNil(t, n.Mailer)
		assert.Equal(t, "smtp:ada", n.Mailer.Send("ada"))

		info, ok := c.Registration(kiln.TypeOf[*notifier]())
		require.True(t, ok)
		assert.Equal(t, []kiln.Dependency{{Type: mailerType, Reference: "SMTPMailer"}}, info.Dependencies)
	})

	t.Run("registered after the referencing service", func(t *testing.T) {
		c := kiln.New()
		require.NoError(t, kiln.AddTransient[*notifier, *notifier](c))
		require.NoError(t, kiln.AddSingleton[SMTPMailer, SMTPMailer](c))

		n, err := kiln.Resolve[*notifier](c)
		require.NoError(t, err)
		assert.IsType(t, SMTPMailer{}, n.Mailer)
	})

	t.Run("qualified name", func(t *testing.T) {
		type qualified struct {
			Mailer Mailer `inject:"kiln_test.SMTPMailer"`
		}

		c := kiln.New()
		require.NoError(t, kiln.AddTransient[SMTPMailer, SMTPMailer](c))
		require.NoError(t, kiln.AddTransient[*qualified, *qualified](c))

		q, err := kiln.Resolve[*qualified](c)
		require.NoError(t, err)
		assert.NotNil(t, q.Mailer)
	})

	t.Run("no match", func(t *testing.T) {
		c := kiln.New()
		require.NoError(t, kiln.AddTransient[SMTPMailer, SMTPMailer](c))
		require.NoError(t, kiln.AddTransient[*missingRefNotifier, *missingRefNotifier](c))

		_, err := kiln.Resolve[*missingRefNotifier](c)
		require.Error(t, err)
		assert.ErrorIs(t, err, kiln.ErrUnresolvedReference)
		assert.ErrorIs(t, err, kiln.ErrDependencyResolution)

		resErr := testutil.AssertErrorType[kiln.DependencyResolutionError](t, err)
		assert.Equal(t, "PigeonMailer", resErr.Reference)
		assert.Equal(t, []string{"*missingRefNotifier"}, resErr.Chain)
		assert.Contains(t, err.Error(), `cannot resolve reference "PigeonMailer" for *missingRefNotifier`)
	})

	t.Run("ambiguous match", func(t *testing.T) {
		c := kiln.New()
		require.NoError(t, kiln.AddTransient[SMTPMailer, SMTPMailer](c))
		require.NoError(t, kiln.AddTransient[*notifier, *notifier](c))

		// A distinct type sharing the short name.
		type SMTPMailer struct{ Host string }
		require.NoError(t, kiln.AddTransient[SMTPMailer, SMTPMailer](c))

		_, err := kiln.Resolve[*notifier](c)
		require.Error(t, err)
		assert.ErrorIs(t, err, kiln.ErrAmbiguousReference)
		assert.ErrorIs(t, err, kiln.ErrDependencyResolution)
	})

	t.Run("reference to incompatible service", func(t *testing.T) {
		type wrongRef struct {
			Mailer Mailer `inject:"*TestService"`
		}

		c := testutil.NewContainerBuilder(t).
			WithTransient(serviceType, nil).
			Build()
		require.NoError(t, kiln.AddTransient[*wrongRef, *wrongRef](c))

		_, err := kiln.Resolve[*wrongRef](c)
		require.Error(t, err)
		assert.ErrorIs(t, err, kiln.ErrDependencyResolution)
		assert.Contains(t, err.Error(), "not assignable")
	})
}

func TestResolver_ConstructionFailures(t *testing.T) {
	t.Run("constructor error keeps cause", func(t *testing.T) {
		c := testutil.NewContainerBuilder(t).
			WithBasicServices().
			WithTransient(kiln.TypeOf[*testutil.TestServiceWithDeps](), func(testutil.TestDatabase) (*testutil.TestServiceWithDeps, error) {
				return nil, testutil.ErrConstructor
			}).
			Build()

		_, err := kiln.Resolve[*testutil.TestServiceWithDeps](c)
		require.Error(t, err)

		assert.ErrorIs(t, err, testutil.ErrConstructor)
		assert.ErrorIs(t, err, kiln.ErrInjection)
		assert.Equal(t, testutil.ErrConstructor, errors.Unwrap(err))
		testutil.AssertResolutionChain(t, err, "*TestServiceWithDeps")
	})

	t.Run("dependency error propagates unchanged", func(t *testing.T) {
		c := testutil.NewContainerBuilder(t).
			WithSingleton(loggerType, func() (*testutil.TestLoggerImpl, error) {
				return nil, testutil.ErrConstructor
			}).
			WithTransient(databaseType, testutil.NewTestDatabase).
			Build()

		_, err := c.Resolve(databaseType)
		require.Error(t, err)

		resErr := testutil.AssertResolutionChain(t, err, "TestDatabase", "TestLogger")
		assert.Equal(t, loggerType, resErr.ServiceType)
		assert.Equal(t, testutil.ErrConstructor, resErr.Cause)
	})

	t.Run("constructor panic recovered", func(t *testing.T) {
		c := testutil.NewContainerBuilder(t).
			WithTransient(serviceType, func() *testutil.TestService { panic("boom") }).
			Build()

		var err error
		assert.NotPanics(t, func() {
			_, err = c.Resolve(serviceType)
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, kiln.ErrDependencyResolution)
		assert.Contains(t, err.Error(), "panic: boom")
	})
}

func TestResolver_NestedResolve(t *testing.T) {
	t.Run("cycle through a factory", func(t *testing.T) {
		c := kiln.New()
		require.NoError(t, kiln.AddFactory(c, func() (lazyGreeter, error) {
			if _, err := kiln.Resolve[*greeterClient](c); err != nil {
				return nil, err
			}
			return nil, nil
		}))
		require.NoError(t, kiln.AddTransient[*greeterClient, *greeterClient](c))

		_, err := kiln.Resolve[lazyGreeter](c)
		testutil.AssertCircularDependency(t, err, "lazyGreeter", "*greeterClient", "lazyGreeter")

		_, err = kiln.Resolve[*greeterClient](c)
		testutil.AssertCircularDependency(t, err, "*greeterClient", "lazyGreeter", "*greeterClient")
	})

	t.Run("singleton resolving itself", func(t *testing.T) {
		c := kiln.New()
		require.NoError(t, kiln.AddSingletonFunc[*selfResolving](c, func() *selfResolving {
			_, err := kiln.Resolve[*selfResolving](c)
			return &selfResolving{inner: err}
		}))

		done := make(chan struct{})
		var (
			got *selfResolving
			err error
		)
		go func() {
			defer close(done)
			got, err = kiln.Resolve[*selfResolving](c)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("resolution did not return")
		}

		require.NoError(t, err)
		testutil.AssertCircularDependency(t, got.inner, "*selfResolving", "*selfResolving")
		testutil.AssertSameInstance(t, got, kiln.MustResolve[*selfResolving](c))
	})

	t.Run("nested calls share the depth bound", func(t *testing.T) {
		c := kiln.New(kiln.WithMaxDepth(2))
		require.NoError(t, kiln.AddFactory(c, func() (*chainA, error) {
			b, err := kiln.Resolve[*chainB](c)
			if err != nil {
				return nil, err
			}
			return &chainA{B: b}, nil
		}))
		require.NoError(t, kiln.AddTransient[*chainB, *chainB](c))
		require.NoError(t, kiln.AddTransient[*chainC, *chainC](c))

		_, err := kiln.Resolve[*chainA](c)
		assert.ErrorIs(t, err, kiln.ErrMaxDepthExceeded)

		// The factory's own failure wraps the error from its nested call.
		outer := testutil.AssertResolutionChain(t, err, "*chainA")
		inner := testutil.AssertResolutionChain(t, outer.Cause, "*chainA", "*chainB")
		assert.Equal(t, kiln.TypeOf[*chainC](), inner.ServiceType)
	})

	t.Run("later resolutions start a fresh chain", func(t *testing.T) {
		c := kiln.New()
		require.NoError(t, kiln.AddFactory(c, func() (*chainA, error) {
			b, err := kiln.Resolve[*chainB](c)
			if err != nil {
				return nil, err
			}
			return &chainA{B: b}, nil
		}))
		require.NoError(t, kiln.AddTransient[*chainB, *chainB](c))
		require.NoError(t, kiln.AddTransient[*chainC, *chainC](c))

		for i := 0; i < 3; i++ {
			a, err := kiln.Resolve[*chainA](c)
			require.NoError(t, err)
			assert.NotNil(t, a.B.C)
		}

		_, err := kiln.Resolve[*chainB](c)
		assert.NoError(t, err)
	})
}

func TestResolver_MaxDepth(t *testing.T) {
	t.Run("exceeded", func(t *testing.T) {
		c := kiln.New(kiln.WithMaxDepth(2))
		require.NoError(t, kiln.AddTransient[*chainA, *chainA](c))
		require.NoError(t, kiln.AddTransient[*chainB, *chainB](c))
		require.NoError(t, kiln.AddTransient[*chainC, *chainC](c))

		_, err := kiln.Resolve[*chainA](c)
		require.Error(t, err)
		assert.ErrorIs(t, err, kiln.ErrMaxDepthExceeded)

		resErr := testutil.AssertResolutionChain(t, err, "*chainA", "*chainB")
		assert.Equal(t, kiln.TypeOf[*chainC](), resErr.ServiceType)

		_, err = kiln.Resolve[*chainB](c)
		assert.NoError(t, err)
	})

	t.Run("within bound", func(t *testing.T) {
		c := kiln.New(kiln.WithMaxDepth(3))
		require.NoError(t, kiln.AddTransient[*chainA, *chainA](c))
		require.NoError(t, kiln.AddTransient[*chainB, *chainB](c))
		require.NoError(t, kiln.AddTransient[*chainC, *chainC](c))

		a, err := kiln.Resolve[*chainA](c)
		require.NoError(t, err)
		assert.NotNil(t, a.B.C)
	})

	t.Run("non-positive restores default", func(t *testing.T) {
		c := kiln.New(kiln.WithMaxDepth(0))
		require.NoError(t, kiln.AddTransient[*chainC, *chainC](c))

		_, err := kiln.Resolve[*chainC](c)
		assert.NoError(t, err)
	})
}
