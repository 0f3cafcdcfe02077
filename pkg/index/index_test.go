package index

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/javaperf/pkg/callgraph"
	"github.com/panbanda/javaperf/pkg/parser"
	"github.com/panbanda/javaperf/pkg/symbols"
)

const serviceSrc = `package com.example.service;

import com.example.repository.OrderRepository;
import com.example.model.*;
import static java.util.Collections.emptyList;
import java.util.List;

@Service
@Transactional
public class OrderService {
    private final OrderRepository orderRepository;
    private List<Order> cache, backup;

    public OrderService(OrderRepository orderRepository) {
        this.orderRepository = orderRepository;
    }

    public List<Order> findAllWithDetails() {
        List<Order> orders = orderRepository.findAll();
        for (Order order : orders) {
            order.setItems(this.orderRepository.findItemsByOrderId(order.getId()));
        }
        audit();
        return orders;
    }

    public Order findById(Long id, String... tags) {
        return orderRepository.findById(id).orElse(null);
    }

    private void audit() {}

    static class Helper {}
}
`

func build(t *testing.T, src, path string) *FileIndex {
	t.Helper()
	p := parser.New()
	defer p.Close()
	result, err := p.Parse([]byte(src), path)
	require.NoError(t, err)
	defer result.Close()
	return Build(result)
}

func TestBuild_TypeAndPackage(t *testing.T) {
	fi := build(t, serviceSrc, "OrderService.java")

	assert.Equal(t, "com.example.service", fi.Package)
	require.NotNil(t, fi.Primary())
	assert.Equal(t, "OrderService", fi.Primary().Type.Name)
	assert.Equal(t, "com.example.service.OrderService", fi.Primary().Type.FQN)
	assert.Equal(t, symbols.LayerService, fi.Primary().Type.Layer)
	assert.Equal(t, []string{"Service", "Transactional"}, fi.Primary().Type.Annotations)
	assert.Equal(t, 8, fi.Primary().Type.Line)
}

func TestBuild_Imports(t *testing.T) {
	fi := build(t, serviceSrc, "OrderService.java")

	assert.Equal(t, "com.example.repository.OrderRepository", fi.Imports.Explicit["OrderRepository"])
	assert.Equal(t, "java.util.List", fi.Imports.Explicit["List"])
	assert.Equal(t, "java.util.Collections", fi.Imports.Explicit["Collections"])
	assert.Equal(t, []string{"com.example.model"}, fi.Imports.Wildcards)
	assert.ElementsMatch(t, []string{"OrderService", "Helper"}, fi.Imports.LocalClasses)
}

func TestBuild_Fields(t *testing.T) {
	fi := build(t, serviceSrc, "OrderService.java")

	require.Len(t, fi.Primary().Fields, 3)
	assert.Equal(t, symbols.VarBinding{Name: "orderRepository", TypeName: "OrderRepository", IsField: true}, fi.Primary().Fields[0])
	assert.Equal(t, "cache", fi.Primary().Fields[1].Name)
	assert.Equal(t, "List", fi.Primary().Fields[1].TypeName)
	assert.Equal(t, "backup", fi.Primary().Fields[2].Name)
}

func TestBuild_Methods(t *testing.T) {
	fi := build(t, serviceSrc, "OrderService.java")

	sigs := make([]string, 0, len(fi.Primary().Methods))
	for _, m := range fi.Primary().Methods {
		sigs = append(sigs, m.Signature())
	}
	assert.Equal(t, []string{"findAllWithDetails()", "findById(Long,String...)", "audit()"}, sigs)
}

func TestBuild_Calls(t *testing.T) {
	fi := build(t, serviceSrc, "OrderService.java")

	var got []callgraph.RawCall
	for _, c := range fi.Primary().Calls {
		if c.Caller == "findAllWithDetails" {
			got = append(got, c)
		}
	}
	assert.Equal(t, []callgraph.RawCall{
		{Caller: "findAllWithDetails", Receiver: "orderRepository", Method: "findAll", Line: 19},
		{Caller: "findAllWithDetails", Receiver: "order", Method: "setItems", Line: 21},
		{Caller: "findAllWithDetails", Receiver: "orderRepository", Method: "findItemsByOrderId", Line: 21},
		{Caller: "findAllWithDetails", Receiver: "order", Method: "getId", Line: 21},
		{Caller: "findAllWithDetails", Receiver: "", Method: "audit", Line: 23},
	}, got)

	for _, c := range fi.Primary().Calls {
		assert.NotEqual(t, "orElse", c.Method, "chained call receivers are not syntactically typed")
	}
}

func TestBuild_NoTopLevelType(t *testing.T) {
	fi := build(t, "package com.x;\nimport com.y.Z;\n", "package-info.java")

	assert.Nil(t, fi.Primary())
	assert.Equal(t, "com.y.Z", fi.Imports.Explicit["Z"])
	assert.Empty(t, fi.SymbolTable().Classes)
	assert.Empty(t, fi.Link(symbols.NewSymbolTable()).Outgoing)
}

func TestBuild_DefaultPackage(t *testing.T) {
	fi := build(t, "@Repository class Repo {}", "Repo.java")

	require.NotNil(t, fi.Primary())
	assert.Equal(t, "Repo", fi.Primary().Type.FQN)
	assert.Equal(t, symbols.LayerRepository, fi.Primary().Type.Layer)
}

func TestFileIndex_JSONRoundTrip(t *testing.T) {
	fi := build(t, serviceSrc, "OrderService.java")

	data, err := json.Marshal(fi)
	require.NoError(t, err)
	var back FileIndex
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, fi.Primary().Type.FQN, back.Primary().Type.FQN)
	assert.Equal(t, fi.Primary().Calls, back.Primary().Calls)
}

func TestLink(t *testing.T) {
	repoSrc := `package com.example.repository;
@Repository
public interface OrderRepository {}
`
	svc := build(t, serviceSrc, "OrderService.java")
	repo := build(t, repoSrc, "OrderRepository.java")

	table := symbols.NewSymbolTable()
	table.Merge(svc.SymbolTable())
	table.Merge(repo.SymbolTable())

	g := svc.Link(table)
	caller := callgraph.ResolvedSig("com.example.service.OrderService", "findAllWithDetails")

	var callees []string
	for _, s := range g.Outgoing[caller] {
		callees = append(callees, s.Callee.String())
	}
	assert.Contains(t, callees, "com.example.repository.OrderRepository.findItemsByOrderId")
	assert.Contains(t, callees, "com.example.service.OrderService.audit")
	assert.Contains(t, callees, "?order.getId")
	assert.Equal(t, symbols.LayerService, g.ClassLayers["com.example.service.OrderService"])
}

func TestBuild_NestedAndSecondaryTypes(t *testing.T) {
	src := `package com.example.batch;

public class Importer {
    private final Parser parser;

    void run() { parser.parse(); }

    static class Worker {
        private OrderRepository orders;

        void work() {
            orders.findById(1L);
            new Runnable() { public void run() { orders.count(); } }.run();
        }
    }
}

class Audit {
    private AuditDao auditDao;
    void record() { auditDao.save(); }
}
`
	fi := build(t, src, "Importer.java")

	names := make([]string, 0, len(fi.Types))
	for _, ti := range fi.Types {
		names = append(names, ti.Type.FQN)
	}
	assert.Equal(t, []string{
		"com.example.batch.Importer",
		"com.example.batch.Worker",
		"com.example.batch.Audit",
	}, names)
	assert.Equal(t, "com.example.batch.Importer", fi.Primary().Type.FQN)

	worker := fi.Types[1]
	require.Len(t, worker.Fields, 1)
	assert.Equal(t, "orders", worker.Fields[0].Name)
	var workerCalls []string
	for _, c := range worker.Calls {
		workerCalls = append(workerCalls, c.Receiver+"."+c.Method)
	}
	assert.Contains(t, workerCalls, "orders.findById")
	assert.Contains(t, workerCalls, "orders.count", "anonymous classes belong to the enclosing method")

	table := fi.SymbolTable()
	_, ok := table.LookupField("com.example.batch.Worker", "orders")
	assert.True(t, ok)
	_, ok = table.LookupField("com.example.batch.Importer", "orders")
	assert.False(t, ok)
	_, ok = table.LookupField("com.example.batch.Audit", "auditDao")
	assert.True(t, ok)

	g := fi.Link(table)
	assert.NotEmpty(t, g.Outgoing[callgraph.ResolvedSig("com.example.batch.Worker", "work")])
	assert.NotEmpty(t, g.Outgoing[callgraph.ResolvedSig("com.example.batch.Audit", "record")])
	assert.Equal(t, "Importer.java", g.ClassFiles["com.example.batch.Audit"])
}
