package export

import (
	"strings"
	"testing"

	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

func TestGeneratePyTorchChain(t *testing.T) {
	cat := exportCatalog(t)
	n := chainNetwork()
	n.Target = domain.TargetPyTorch
	src, err := GeneratePyTorch(n, cat)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	wantContains(t, src,
		"# Network: mnist (target: pytorch)",
		"class Mnist(nn.Module):",
		"self.f = nn.Flatten()",
		"self.d1 = nn.LazyLinear(128)",
		"self.d1_act = nn.ReLU()",
		"self.drop = nn.Dropout(p=0.25)",
		"self.d2_act = nn.Softmax(dim=-1)",
		"def forward(self, in_):",
		"f = self.f(in_)",
		"d1 = self.d1_act(d1)",
		"return d2",
		"def build_model():",
	)
	if strings.Contains(src, "\nimport torch\n") {
		t.Fatalf("chain needs no torch import beyond nn:\n%s", src)
	}
}

func TestGeneratePyTorchDeterministic(t *testing.T) {
	cat := exportCatalog(t)
	n := chainNetwork()
	a, err := GeneratePyTorch(n, cat)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GeneratePyTorch(n, cat)
	if err != nil {
		t.Fatalf("generate again: %v", err)
	}
	if a != b {
		t.Fatalf("output changed between runs")
	}
}

func TestGeneratePyTorchRecurrentFeatureSize(t *testing.T) {
	cat := exportCatalog(t)
	n := &domain.Network{
		Name:       "imdb",
		Target:     domain.TargetPyTorch,
		InputShape: []int{100},
		Blocks: []domain.Block{
			{ID: "in", Type: "input"},
			{ID: "emb", Type: "embedding", Params: map[string]any{"vocabSize": 1000, "dim": 32}},
			{ID: "rnn", Type: "lstm", Params: map[string]any{"units": 64}},
		},
		Connections: []domain.Connection{
			{From: "in", To: "emb"},
			{From: "emb", To: "rnn"},
		},
	}
	src, err := GeneratePyTorch(n, cat)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	wantContains(t, src,
		"self.emb = nn.Embedding(1000, 32)",
		"self.rnn = nn.LSTM(input_size=32, hidden_size=64, batch_first=True)",
		"rnn, _ = self.rnn(emb)",
		"rnn = rnn[:, -1, :]",
	)
}

func TestGeneratePyTorchAddMerge(t *testing.T) {
	cat := exportCatalog(t)
	n := branchNetwork()
	n.Target = domain.TargetPyTorch
	src, err := GeneratePyTorch(n, cat)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	wantContains(t, src, "join = d1 + d2")
	if strings.Contains(src, "\nimport torch\n") {
		t.Fatalf("add merge needs no torch import:\n%s", src)
	}
}

func TestGeneratePyTorchConcatImportsTorch(t *testing.T) {
	cat := exportCatalog(t)
	n := branchNetwork()
	n.Target = domain.TargetPyTorch
	n.Blocks[3].Type = "concat"
	src, err := GeneratePyTorch(n, cat)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	wantContains(t, src,
		"\nimport torch\n",
		"join = torch.cat([d1, d2], dim=-1)",
	)
}

func TestGeneratePyTorchDanglingBlockFails(t *testing.T) {
	cat := exportCatalog(t)
	n := chainNetwork()
	n.Connections = n.Connections[:1]
	if _, err := GeneratePyTorch(n, cat); err == nil {
		t.Fatalf("want error for block without inbound connection")
	}
}

func TestPyClassName(t *testing.T) {
	cases := map[string]string{
		"mnist":    "Mnist",
		"my-net 2": "MyNet2",
		"9lives":   "Net9lives",
		"":         "Model",
	}
	for in, want := range cases {
		if got := pyClassName(in); got != want {
			t.Fatalf("pyClassName(%q) = %q, want %q", in, got, want)
		}
	}
}
