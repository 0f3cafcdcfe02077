package rules

import (
	"bytes"
	"regexp"

	"github.com/panbanda/javaperf/pkg/models"
)

const (
	p0 = models.SeverityP0
	p1 = models.SeverityP1
)

// LargeArrayThreshold is the element count at which LARGE_ARRAY fires.
const LargeArrayThreshold = 1_000_000

// Catalog returns a fresh copy of the built-in rules.
func Catalog() []*Rule {
	rules := structuralRules()
	for _, r := range rules {
		r.Query = loadQuery(r.ID)
	}
	return append(rules, contentRules()...)
}

func structuralRules() []*Rule {
	return []*Rule{
		// Performance
		{
			ID: "N_PLUS_ONE", Severity: p0, Category: CategoryPerformance,
			Description: "Data access call inside a for loop (N+1 queries)",
			Rationale:   "100 iterations at 10ms each is a one second response. This is the most common performance defect.",
			Fix:         "Batch the lookup, e.g. findAllByIdIn(ids), and index the result in a map",
			Handler:     NPlusOne{},
		},
		{
			ID: "N_PLUS_ONE_WHILE", ReportID: "N_PLUS_ONE", Severity: p0, Category: CategoryPerformance,
			Description: "Data access call inside a while loop (N+1 queries)",
			Fix:         "Batch the lookup outside the loop",
			Handler:     NPlusOne{},
		},
		{
			ID: "N_PLUS_ONE_FOREACH", ReportID: "N_PLUS_ONE", Severity: p0, Category: CategoryPerformance,
			Description: "Data access call inside a for-each loop (N+1 queries)",
			Fix:         "Batch the lookup outside the loop",
			Handler:     NPlusOne{},
		},
		{
			ID: "NESTED_LOOP", Severity: p0, Category: CategoryPerformance,
			Description: "Nested for loops (O(N^2) complexity)",
			Rationale:   "100x100 is 10,000 iterations; any per-iteration cost multiplies quickly.",
			Fix:         "Index one side in a Map or Set to get O(N+M)",
			Handler:     NestedLoop{},
		},
		{
			ID: "NESTED_LOOP_MIXED", ReportID: "NESTED_LOOP", Severity: p0, Category: CategoryPerformance,
			Description: "Nested loops (O(N^2) complexity)",
			Fix:         "Index one side in a Map or Set to get O(N+M)",
			Handler:     NestedLoop{},
		},
		{
			ID: "OBJECT_IN_LOOP", Severity: p1, Category: CategoryPerformance,
			Description: "Object allocated on every loop iteration",
			Rationale:   "Allocation in hot loops raises GC pressure.",
			Fix:         "Hoist the allocation out of the loop or reuse instances",
			Handler:     SimpleMatch{Capture: "creation"},
		},
		{
			ID: "STRING_CONCAT_LOOP", Severity: p1, Category: CategoryPerformance,
			Description: "String concatenated with += inside a loop",
			Rationale:   "Each += copies the string, giving O(N^2) work.",
			Fix:         "Use a StringBuilder",
			Handler:     SimpleMatch{Capture: "assign"},
			Typed:       &TypeFilter{Capture: "var", Types: regexp.MustCompile(`^(String|CharSequence)$`)},
		},

		// Concurrency
		{
			ID: "SYNC_METHOD", Severity: p0, Category: CategoryConcurrency,
			Description: "synchronized method locks the whole instance",
			Rationale:   "A method-wide lock serializes all callers and caps throughput.",
			Fix:         "Narrow the lock to a block or use a read/write lock",
			Handler:     ModifierCheck{Mods: "mods", Modifier: "synchronized"},
		},
		{
			ID: "SYNC_BLOCK", Severity: p1, Category: CategoryConcurrency,
			Description: "synchronized block; keep the critical section small (pins carrier threads under virtual threads)",
			Rationale:   "On JDK 21+ a synchronized block pins the virtual thread's carrier.",
			Fix:         "Use ReentrantLock or shrink the locked region",
			Handler:     SimpleMatch{Capture: "sync"},
		},
		{
			ID: "SLEEP_IN_LOCK", Severity: p0, Category: CategoryConcurrency,
			Description: "Thread.sleep() while holding a monitor",
			Rationale:   "Sleeping with a lock held blocks every other thread waiting on it.",
			Fix:         "Move the sleep out of the synchronized block or use wait/notify",
			Handler:     SimpleMatch{Capture: "sync_block"},
		},
		{
			ID: "LOCK_METHOD_CALL", Severity: p0, Category: CategoryConcurrency,
			Description: "Lock acquired without a guaranteed unlock",
			Rationale:   "An exception between lock() and unlock() leaves the lock held forever.",
			Fix:         "Call unlock() in a finally block right after lock()",
			Handler:     LockRelease{},
			Typed:       &TypeFilter{Capture: "lock_var", Types: regexp.MustCompile(`Lock$`)},
		},
		{
			ID: "FUTURE_GET_NO_TIMEOUT", Severity: p0, Category: CategoryConcurrency,
			Description: "Future.get() without a timeout",
			Rationale:   "An untimed get() can block the calling thread forever.",
			Fix:         "Use future.get(timeout, unit)",
			Handler:     EmptyArgs{Call: "call", Args: "args"},
			Typed: &TypeFilter{
				Capture: "obj",
				Types:   regexp.MustCompile(`^(Future|ScheduledFuture|RunnableFuture|FutureTask|ListenableFuture|ForkJoinTask)$`),
				Names:   regexp.MustCompile(`(?i)future|\.submit\(`),
			},
		},
		{
			ID: "COMPLETABLE_GET_NO_TIMEOUT", Severity: p0, Category: CategoryConcurrency,
			Description: "CompletableFuture.get() without a timeout",
			Rationale:   "An untimed get() can block the calling thread forever.",
			Fix:         "Use get(timeout, unit) or orTimeout()",
			Handler:     EmptyArgs{Call: "call", Args: "args"},
			Typed: &TypeFilter{
				Capture: "obj",
				Types:   regexp.MustCompile(`^(CompletableFuture|CompletionStage)$`),
				Names:   regexp.MustCompile(`(?i)completable|supplyAsync|runAsync|^cf$`),
			},
		},
		{
			ID: "AWAIT_NO_TIMEOUT", Severity: p0, Category: CategoryConcurrency,
			Description: "await()/acquire() without a timeout",
			Rationale:   "CountDownLatch.await() or Semaphore.acquire() without a timeout may wait forever.",
			Fix:         "Use await(timeout, unit) or tryAcquire(timeout, unit)",
			Handler:     EmptyArgs{Call: "call", Args: "args"},
		},
		{
			ID: "COMPLETABLE_JOIN", Severity: p1, Category: CategoryConcurrency,
			Description: "join() without a timeout",
			Rationale:   "join() blocks indefinitely and cannot be bounded.",
			Fix:         "Use orTimeout() or completeOnTimeout()",
			Handler:     EmptyArgs{Call: "call", Args: "args"},
		},
		{
			ID: "UNBOUNDED_POOL", Severity: p0, Category: CategoryConcurrency,
			Description: "Executors factory creates an unbounded pool or queue",
			Rationale:   "Unbounded pools grow without limit under a traffic spike and exhaust memory.",
			Fix:         "Construct a ThreadPoolExecutor with a bounded queue",
			Handler:     SimpleMatch{Capture: "call"},
		},
		{
			ID: "ATOMIC_SPIN", Severity: p1, Category: CategoryConcurrency,
			Description: "AtomicInteger/AtomicLong counter under contention",
			Rationale:   "Heavy contention makes CAS loops spin.",
			Fix:         "Use LongAdder for hot counters",
			Handler:     SimpleMatch{Capture: "creation"},
		},
		{
			ID: "DOUBLE_CHECKED_LOCKING", Severity: p0, Category: CategoryConcurrency,
			Description: "Double-checked locking",
			Rationale:   "Without volatile, other threads may observe a partially constructed object.",
			Fix:         "Make the field volatile or use a holder class or enum singleton",
			Handler:     SimpleMatch{Capture: "outer_if"},
		},
		{
			ID: "NON_ATOMIC_COMPOUND", Severity: p0, Category: CategoryConcurrency,
			Description: "Check-then-act on a collection is not atomic",
			Rationale:   "Another thread can change the collection between the check and the action.",
			Fix:         "Use computeIfAbsent, putIfAbsent or another atomic operation",
			Handler:     SimpleMatch{Capture: "compound"},
		},
		{
			ID: "VOLATILE_ARRAY", Severity: p1, Category: CategoryConcurrency,
			Description: "volatile array field",
			Rationale:   "volatile covers the array reference only; element writes are not visible or atomic.",
			Fix:         "Use AtomicReferenceArray or AtomicIntegerArray",
			Handler:     ModifierCheck{Mods: "mods", Modifier: "volatile"},
		},
		{
			ID: "SIMPLE_DATE_FORMAT", Severity: p1, Category: CategoryConcurrency,
			Description: "SimpleDateFormat is not thread-safe",
			Fix:         "Use java.time.format.DateTimeFormatter",
			Handler:     SimpleMatch{Capture: "creation"},
		},
		{
			ID: "RANDOM_SHARED", Severity: p1, Category: CategoryConcurrency,
			Description: "Shared static Random instance",
			Rationale:   "A shared Random serializes threads on its seed.",
			Fix:         "Use ThreadLocalRandom.current()",
			Handler:     ModifierCheck{Mods: "mods", Modifier: "static"},
		},

		// Memory
		{
			ID: "THREADLOCAL_LEAK", Severity: p0, Category: CategoryMemory,
			Description: "ThreadLocal set() without a guaranteed remove()",
			Rationale:   "Pooled threads are reused; values left behind leak memory and bleed between requests.",
			Fix:         "Call remove() in a finally block",
			Handler:     ThreadLocalCleanup{},
			Typed: &TypeFilter{
				Capture: "var_name",
				Types:   regexp.MustCompile(`ThreadLocal$`),
				Names:   regexp.MustCompile(`(?i)threadlocal|holder|context|^tl`),
			},
		},
		{
			ID: "STATIC_COLLECTION", Severity: p0, Category: CategoryMemory,
			Description: "static collection used as a cache without bounds",
			Rationale:   "A static map or list that only grows is a memory leak.",
			Fix:         "Use a Caffeine or Guava cache with maximumSize and a TTL",
			Handler:     ModifierCheck{Mods: "mods", Modifier: "static"},
		},
		{
			ID: "FINALIZE_OVERRIDE", Severity: p0, Category: CategoryMemory,
			Description: "finalize() override",
			Rationale:   "finalize() is deprecated and keeps objects alive for an extra GC cycle.",
			Fix:         "Use java.lang.ref.Cleaner or try-with-resources",
			Handler:     SimpleMatch{Capture: "method"},
		},
		{
			ID: "STRING_INTERN", Severity: p1, Category: CategoryMemory,
			Description: "String.intern() call",
			Rationale:   "Heavy interning bloats the string table.",
			Fix:         "Check whether interning is needed; a HashMap is often enough",
			Handler:     SimpleMatch{Capture: "call"},
		},
		{
			ID: "LARGE_ARRAY", Severity: p1, Category: CategoryMemory,
			Description: "Large array allocation",
			Rationale:   "Huge arrays go straight to the old generation and can trigger full GCs.",
			Fix:         "Pool buffers or process in chunks",
			Handler:     LargeArray{Threshold: LargeArrayThreshold},
		},
		{
			ID: "SOFT_REFERENCE", Severity: p1, Category: CategoryMemory,
			Description: "SoftReference used for caching",
			Rationale:   "Soft references are cleared in bulk under memory pressure, often during a full GC.",
			Fix:         "Use an explicit bounded cache or WeakReference",
			Handler:     SimpleMatch{Capture: "creation"},
		},

		// Spring
		{
			ID: "ASYNC_DEFAULT_POOL", Severity: p1, Category: CategorySpring,
			Description: "@Async without an executor uses SimpleAsyncTaskExecutor",
			Rationale:   "The default executor starts a new thread per call.",
			Fix:         "Define a bounded executor bean and name it in @Async",
			Handler:     SimpleMatch{Capture: "method"},
		},
		{
			ID: "SCHEDULED_FIXED_RATE", Severity: p1, Category: CategorySpring,
			Description: "@Scheduled(fixedRate) may pile up runs",
			Rationale:   "When a run takes longer than the rate, executions queue behind each other.",
			Fix:         "Use fixedDelay or a distributed lock",
			Handler:     SimpleMatch{Capture: "method"},
		},
		{
			ID: "AUTOWIRED_FIELD", Severity: p1, Category: CategorySpring,
			Description: "@Autowired field injection",
			Rationale:   "Field injection hides dependencies and hinders testing and immutability.",
			Fix:         "Use constructor injection",
			Handler:     SimpleMatch{Capture: "field"},
		},
		{
			ID: "CACHEABLE_NO_KEY", Severity: p1, Category: CategorySpring,
			Description: "@Cacheable without an explicit key",
			Rationale:   "The default key generator can collide across methods and arguments.",
			Fix:         "Set key or keyGenerator",
			Handler:     SimpleMatch{Capture: "method"},
		},
		{
			ID: "TRANSACTIONAL_REQUIRES_NEW", Severity: p1, Category: CategorySpring,
			Description: "@Transactional(propagation = REQUIRES_NEW)",
			Rationale:   "Nested transactions hold two connections and can deadlock the pool.",
			Fix:         "Confirm a new transaction is needed; REQUIRED is usually enough",
			Handler:     SimpleMatch{Capture: "method"},
		},
		{
			ID: "TRANSACTION_SELF_CALL", Severity: p0, Category: CategorySpring,
			Description: "@Transactional method calls other methods directly; self-invocation bypasses the proxy",
			Rationale:   "Calls within the same bean do not go through the proxy, so their transaction settings are ignored.",
			Fix:         "Move the callee to another bean or go through the proxy",
			Handler:     SimpleMatch{Capture: "method"},
		},
		{
			ID: "LAZY_INIT_CIRCULAR", Severity: p1, Category: CategorySpring,
			Description: "@Lazy @Autowired field may hide a circular dependency",
			Rationale:   "@Lazy defers the cycle to runtime instead of removing it.",
			Fix:         "Refactor to break the dependency cycle",
			Handler:     SimpleMatch{Capture: "field"},
		},

		// Reactive
		{
			ID: "FLUX_BLOCK", Severity: p0, Category: CategoryReactive,
			Description: "block() on a reactive type",
			Rationale:   "Blocking on an event-loop thread stalls or deadlocks the pipeline.",
			Fix:         "Stay reactive, or subscribeOn a bounded elastic scheduler",
			Handler:     MethodCallWithContext{Call: "call"},
		},
		{
			ID: "SUBSCRIBE_NO_ERROR", Severity: p1, Category: CategoryReactive,
			Description: "subscribe() without an error consumer",
			Rationale:   "Errors without a handler are dropped silently.",
			Fix:         "Pass an error consumer: subscribe(onNext, onError)",
			Handler:     MinArgs{Call: "call", Args: "args", N: 2},
		},
		{
			ID: "FLUX_COLLECT_LIST", Severity: p1, Category: CategoryReactive,
			Description: "collectList() buffers the whole stream",
			Rationale:   "Unbounded collection can exhaust memory.",
			Fix:         "Use buffer(n) or window(n)",
			Handler:     MethodCallWithContext{Call: "call"},
		},
		{
			ID: "PARALLEL_NO_RUN_ON", Severity: p1, Category: CategoryReactive,
			Description: "parallel() without runOn()",
			Rationale:   "Without runOn the rails execute on the calling thread.",
			Fix:         "Add .runOn(Schedulers.parallel())",
			Handler:     MethodCallWithContext{Call: "call", Unless: "runOn"},
		},
		{
			ID: "EMITTER_UNBOUNDED", Severity: p0, Category: CategoryReactive,
			Description: "EmitterProcessor.create() without a buffer size",
			Rationale:   "An unbounded processor disables backpressure and can exhaust memory.",
			Fix:         "Use Sinks.many().multicast().onBackpressureBuffer(n)",
			Handler:     EmptyArgs{Call: "call", Args: "args"},
		},
		{
			ID: "SINKS_MANY", Severity: p1, Category: CategoryReactive,
			Description: "Sinks.many() needs an explicit backpressure strategy",
			Fix:         "Use onBackpressureBuffer(n) or another bounded strategy",
			Handler:     SimpleMatch{Capture: "call"},
		},

		// Resource
		{
			ID: "STREAM_RESOURCE_LEAK", Severity: p1, Category: CategoryResource,
			Description: "Resource created in try without try-with-resources or close() in finally",
			Rationale:   "An exception skips the close and leaks the handle.",
			Fix:         "Use try-with-resources",
			Handler:     StreamResourceLeak{},
		},
		{
			ID: "BLOCKING_IO", Severity: p1, Category: CategoryResource,
			Description: "FileInputStream/FileOutputStream blocking I/O",
			Rationale:   "Blocking file I/O ties up request threads under load.",
			Fix:         "Use NIO (Files, FileChannel) or asynchronous I/O",
			Handler:     SimpleMatch{Capture: "creation"},
		},
		{
			ID: "DATASOURCE_NO_POOL", Severity: p1, Category: CategoryResource,
			Description: "DriverManager.getConnection() bypasses connection pooling",
			Rationale:   "Opening a connection per request is slow and unbounded.",
			Fix:         "Use a pooled DataSource such as HikariCP",
			Handler:     SimpleMatch{Capture: "call"},
		},
		{
			ID: "CACHE_NO_EXPIRE", Severity: p1, Category: CategoryResource,
			Description: "Cache built without expiry or size bound",
			Rationale:   "A cache with no eviction grows without limit.",
			Fix:         "Configure maximumSize and expireAfterWrite",
			Handler:     SimpleMatch{Capture: "call"},
			Guard:       lacksCacheBounds,
		},
		{
			ID: "HTTP_CLIENT_TIMEOUT", Severity: p1, Category: CategoryResource,
			Description: "HTTP client use; confirm connect and read timeouts are set",
			Fix:         "Configure connect and read timeouts on the client",
			Handler:     SimpleMatch{Capture: "call"},
		},
		{
			ID: "SYSTEM_EXIT", Severity: p0, Category: CategoryResource,
			Description: "System.exit() terminates the JVM",
			Fix:         "Throw or return an error to the caller instead",
			Handler:     SimpleMatch{Capture: "call"},
		},
		{
			ID: "RUNTIME_EXEC", Severity: p0, Category: CategoryResource,
			Description: "Runtime.exec() risks command injection",
			Fix:         "Use ProcessBuilder with an argument list",
			Handler:     SimpleMatch{Capture: "call"},
		},

		// Exception
		{
			ID: "EMPTY_CATCH", Severity: p0, Category: CategoryException,
			Description: "catch block is empty or only prints",
			Rationale:   "Swallowed exceptions make failures invisible.",
			Fix:         "Log with context or rethrow",
			Handler:     EmptyCatch{},
		},
		{
			ID: "LOG_STRING_CONCAT", Severity: p1, Category: CategoryException,
			Description: "Log message built with string concatenation",
			Rationale:   "The concatenation runs even when the level is disabled.",
			Fix:         `Use placeholders: log.info("x={}", x)`,
			Handler:     SimpleMatch{Capture: "call"},
		},

		// Database
		{
			ID: "SELECT_STAR", Severity: p1, Category: CategoryDatabase,
			Description: "SELECT * query",
			Rationale:   "Fetching unused columns wastes bandwidth and memory.",
			Fix:         "List the needed columns",
			Handler:     StringContent{Capture: "str", Max: 50},
		},
		{
			ID: "LIKE_LEADING_WILDCARD", Severity: p0, Category: CategoryDatabase,
			Description: "LIKE with a leading wildcard forces a full scan",
			Rationale:   "A leading % prevents index use.",
			Fix:         "Use a full-text index or redesign the query",
			Handler:     StringContent{Capture: "str", Max: 50},
		},

		// GraalVM
		{
			ID: "GRAALVM_CLASS_FORNAME", Severity: p1, Category: CategoryGraalVM,
			Description: "[GraalVM] Class.forName needs reflect-config.json",
			Fix:         "Register the class in reflect-config.json",
			Handler:     SimpleMatch{Capture: "call"},
		},
		{
			ID: "GRAALVM_METHOD_INVOKE", Severity: p1, Category: CategoryGraalVM,
			Description: "[GraalVM] Method.invoke needs reflection metadata",
			Fix:         "Register the method in reflect-config.json",
			Handler:     SimpleMatch{Capture: "call"},
		},
		{
			ID: "GRAALVM_PROXY", Severity: p1, Category: CategoryGraalVM,
			Description: "[GraalVM] Proxy.newProxyInstance needs proxy-config.json",
			Fix:         "Register the interfaces in proxy-config.json",
			Handler:     SimpleMatch{Capture: "call"},
		},
	}
}

// contentRules match source text for things the syntax tree does not expose.
func contentRules() []*Rule {
	return []*Rule{
		{
			ID: "HTTP_CLIENT_CHECK_TIMEOUT", Severity: p1, Category: CategoryResource,
			Description: "HTTP client use; confirm timeouts are configured",
			Fix:         "Configure connect and read timeouts",
			Content:     regexp.MustCompile(`(HttpClient|RestTemplate|OkHttp|WebClient)\s*\.`),
		},
		{
			ID: "UNBOUNDED_CACHE_MAP", Severity: p0, Category: CategoryMemory,
			Description: "Unbounded static Map cache",
			Fix:         "Bound the cache size",
			Content:     regexp.MustCompile(`static\s+.*Map\s*<[^>]+>\s*\w+\s*=\s*new`),
		},
		{
			ID: "UNBOUNDED_CACHE_LIST", Severity: p0, Category: CategoryMemory,
			Description: "Unbounded static List/Set cache",
			Fix:         "Bound the collection size",
			Content:     regexp.MustCompile(`static\s+.*(List|Set)\s*<[^>]+>\s*\w+\s*=\s*new`),
		},
		{
			ID: "EXCEPTION_SWALLOW", Severity: p1, Category: CategoryException,
			Description: "Exception swallowed (only printed)",
			Fix:         "Handle the exception or rethrow it",
			Content:     regexp.MustCompile(`catch\s*\([^)]+\)\s*\{[^}]*\.print`),
		},
	}
}

// lacksCacheBounds accepts files that never mention expiry or a size bound.
func lacksCacheBounds(src []byte) bool {
	return !bytes.Contains(src, []byte("expire")) && !bytes.Contains(src, []byte("maximumSize"))
}
