// Command simstudy drives repeated cmd/generate + cmd/estimate runs
// across a grid of poset shapes and importance sample counts L, and
// collects each run's recovered eps and final log-likelihood into a CSV
// summary.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var (
	logger *log.Logger
	out    io.WriteCloser
)

type config struct {
	posetType string
	p         int
	n         int
	lambdaS   float64
	eps       float64
	l         int
	proposal  string
	maxiter   int
	gobfile   string
	logname   string
}

var base = &config{
	posetType: "chain",
	p:         5,
	n:         300,
	lambdaS:   1,
	eps:       0.05,
	l:         100,
	proposal:  "rejection",
	maxiter:   200,
	gobfile:   "tmp.gob.gz",
	logname:   "hcbn",
}

func generate(c *config) {
	args := []string{"run", "../generate/main.go",
		fmt.Sprintf("-posettype=%s", c.posetType),
		fmt.Sprintf("-p=%d", c.p),
		fmt.Sprintf("-n=%d", c.n),
		fmt.Sprintf("-lambdas=%f", c.lambdaS),
		fmt.Sprintf("-eps=%f", c.eps),
		fmt.Sprintf("-outname=%s", c.gobfile),
	}

	logger.Printf("go %s\n", strings.Join(args, " "))

	cmd := exec.Command("go", args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic(err)
	}
}

func fit(c *config, num int) string {
	logname := path.Join("logs", fmt.Sprintf("%s_%d_%d", c.proposal, c.l, num))

	args := []string{"run", "../estimate/main.go",
		fmt.Sprintf("-maxiter=%d", c.maxiter),
		fmt.Sprintf("-l=%d", c.l),
		fmt.Sprintf("-proposal=%s", c.proposal),
		fmt.Sprintf("-logname=%s", logname),
		fmt.Sprintf("-gobfile=%s", c.gobfile),
	}

	logger.Printf("go %s\n", strings.Join(args, " "))

	cmd := exec.Command("go", args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic(err)
	}
	return logname
}

func collect(logname string) (eps, llhood float64) {
	fid, err := os.Open(logname + "_msg.log")
	if err != nil {
		panic(err)
	}
	defer fid.Close()

	scanner := bufio.NewScanner(fid)
	re := regexp.MustCompile(`Recovered lambda=.* eps=([\d.eE+-]*) llhood=([\d.eE+-]*)`)

	for scanner.Scan() {
		line := scanner.Text()
		ma := re.FindStringSubmatch(line)
		if ma == nil {
			continue
		}
		eps, _ = strconv.ParseFloat(ma[1], 64)
		llhood, _ = strconv.ParseFloat(ma[2], 64)
	}
	return eps, llhood
}

func run(c *config) {
	for i := 0; i < 5; i++ {
		generate(c)
		for _, l := range []int{50, 100, 200} {
			c.l = l
			logname := fit(c, i)
			eps, llhood := collect(logname)
			_, _ = io.WriteString(out, fmt.Sprintf("%s,%d,%d,%d,%d,%f,%f\n",
				c.posetType, c.p, c.n, c.l, i, eps, llhood))
		}
	}
}

func main() {
	var err error
	out, err = os.Create("result.csv")
	if err != nil {
		panic(err)
	}
	defer out.Close()

	_, _ = io.WriteString(out, "PosetType,P,N,L,Run,Eps,Llhood\n")

	lfid, err := os.Create("simstudy.log")
	if err != nil {
		panic(err)
	}
	defer lfid.Close()
	logger = log.New(lfid, "", log.Ltime)

	for _, pt := range []string{"empty", "chain", "random"} {
		c := *base
		c.posetType = pt
		run(&c)
	}
}
