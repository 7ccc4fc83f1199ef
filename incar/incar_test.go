package incar

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"testing"
)

func TestRead(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	content := `# Two site chain at the critical point.
model = tfim
nq = 2
g = 1.0

dtau = 0.02
nsteps = 5000
etol = 1e-7
`
	fpath := filepath.Join(dir, "incarN2g1")
	if err := os.WriteFile(fpath, []byte(content), 0644); err != nil {
		t.Fatalf("%+v", err)
	}

	p, err := Read(fpath)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if p.Model != ModelTFIM || p.NQ != 2 || p.G != 1 {
		t.Fatalf("%#v", p)
	}
	if p.Dtau != 0.02 || p.NSteps != 5000 || p.Etol != 1e-7 {
		t.Fatalf("%#v", p)
	}
	// Unset keys keep their defaults.
	if p.Ridge != 1e-6 {
		t.Fatalf("%#v", p)
	}

	h, err := p.Operator()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	// One ZZ bond and two X fields.
	if len(h) != 3 {
		t.Fatalf("%d", len(h))
	}
}

func TestReadErrors(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	// Cleanup instead of defer, since it waits for the parallel subtests.
	t.Cleanup(func() { os.RemoveAll(dir) })

	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown key", content: "model = tfim\nnq = 2\nbogus = 1\n"},
		{name: "no separator", content: "model tfim\n"},
		{name: "bad number", content: "model = tfim\nnq = two\n"},
		{name: "missing nq", content: "model = tfim\n"},
		{name: "unknown model", content: "model = xyz\n"},
		{name: "missing ham", content: "model = file\n"},
		{name: "bad dtau", content: "model = tfim\nnq = 2\ndtau = -1\n"},
	}
	for _, test := range tests {
		fpath := filepath.Join(dir, "incar"+test.name)
		if err := os.WriteFile(fpath, []byte(test.content), 0644); err != nil {
			t.Fatalf("%+v", err)
		}
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Read(fpath); err == nil {
				t.Fatalf("%s: expected error", fpath)
			}
		})
	}
}

func TestOperatorFromFile(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	hamCSV := "(-1+0j),ZZ\n(-1+0j),XI\n(-1+0j),IX\n"
	if err := os.WriteFile(filepath.Join(dir, "hamiltonian.csv"), []byte(hamCSV), 0644); err != nil {
		t.Fatalf("%+v", err)
	}
	incarContent := "model = file\nham = hamiltonian.csv\n"
	fpath := filepath.Join(dir, "incarH")
	if err := os.WriteFile(fpath, []byte(incarContent), 0644); err != nil {
		t.Fatalf("%+v", err)
	}

	p, err := Read(fpath)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	h, err := p.Operator()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(h) != 3 || h.Qubits() != 2 {
		t.Fatalf("%#v", h)
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
