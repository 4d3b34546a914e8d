package train

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

func splitSizes(n int, testFrac float64) (int, error) {
	if testFrac <= 0 || testFrac >= 1 {
		return 0, fmt.Errorf("test fraction must be in (0, 1), got %v", testFrac)
	}
	nTest := int(math.Ceil(testFrac * float64(n)))
	if nTest < 1 || n-nTest < 1 {
		return 0, fmt.Errorf("cannot split %d rows with test fraction %v", n, testFrac)
	}
	return nTest, nil
}

// Split shuffles row indices 0..n-1 and holds out ceil(testFrac*n) of them.
// Both halves are returned in ascending order.
func Split(n int, testFrac float64, seed int64) (trainIdx, testIdx []int, err error) {
	nTest, err := splitSizes(n, testFrac)
	if err != nil {
		return nil, nil, err
	}
	perm := rand.New(rand.NewPCG(uint64(seed), 0)).Perm(n)
	testIdx = append([]int(nil), perm[:nTest]...)
	trainIdx = append([]int(nil), perm[nTest:]...)
	sort.Ints(testIdx)
	sort.Ints(trainIdx)
	return trainIdx, testIdx, nil
}

// StratifiedSplit is Split with the class proportions of labels preserved in
// both halves. Every class needs at least two members.
func StratifiedSplit(labels []int, testFrac float64, seed int64) (trainIdx, testIdx []int, err error) {
	nTest, err := splitSizes(len(labels), testFrac)
	if err != nil {
		return nil, nil, err
	}
	byClass := make(map[int][]int)
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	classes := make([]int, 0, len(byClass))
	for c, members := range byClass {
		if len(members) < 2 {
			return nil, nil, fmt.Errorf("class %d has %d member(s); stratification needs at least 2", c, len(members))
		}
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewPCG(uint64(seed), 1))
	assigned := 0
	for k, c := range classes {
		members := byClass[c]
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		take := int(math.Round(float64(len(members)) * float64(nTest) / float64(len(labels))))
		if k == len(classes)-1 {
			take = nTest - assigned
		}
		take = max(1, min(take, len(members)-1))
		assigned += take
		testIdx = append(testIdx, members[:take]...)
		trainIdx = append(trainIdx, members[take:]...)
	}
	sort.Ints(testIdx)
	sort.Ints(trainIdx)
	return trainIdx, testIdx, nil
}
