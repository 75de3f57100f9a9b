package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAutoscalingInstancesSinglePage(t *testing.T) {
	t.Parallel()
	f := &awsFake{t: t, autoscalingPages: [][]byte{
		autoscalingPage("", asgMember{"i-a", "g"}, asgMember{"i-b", "g"}),
	}}
	c := &fakeClient{fn: f.handle}

	instances, err := ListAutoscalingInstances(context.Background(), c)
	require.NoError(t, err)
	assert.Len(t, instances, 2)
	require.Len(t, c.calls, 1)
	_, hasToken := c.calls[0].params.Get("NextToken")
	assert.False(t, hasToken)
	version, _ := c.calls[0].params.Get("Version")
	assert.Equal(t, "2011-01-01", version)
}

func TestListAutoscalingInstancesTwoPages(t *testing.T) {
	t.Parallel()
	f := &awsFake{t: t, autoscalingPages: [][]byte{
		autoscalingPage("page-1", asgMember{"i-a", "g"}, asgMember{"i-b", "g"}, asgMember{"i-c", "h"}),
		autoscalingPage("", asgMember{"i-d", "g"}, asgMember{"i-e", "h"}),
	}}
	c := &fakeClient{fn: f.handle}

	instances, err := ListAutoscalingInstances(context.Background(), c)
	require.NoError(t, err)
	assert.Len(t, instances, 5)
	require.Len(t, c.calls, 2)
	token, ok := c.calls[1].params.Get("NextToken")
	require.True(t, ok)
	assert.Equal(t, "page-1", token)
	assert.ElementsMatch(t, []string{"i-a", "i-b", "i-d"}, GroupMembers(instances, "g"))
}

func TestListAutoscalingInstancesFailureDiscardsPages(t *testing.T) {
	t.Parallel()
	f := &awsFake{
		t: t,
		autoscalingPages: [][]byte{
			autoscalingPage("page-1", asgMember{"i-a", "g"}),
			autoscalingPage("page-2", asgMember{"i-b", "g"}),
		},
		autoscalingErr: map[int]error{2: errors.New("throttled")},
	}
	c := &fakeClient{fn: f.handle}

	instances, err := ListAutoscalingInstances(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	assert.Nil(t, instances)
	assert.Len(t, c.calls, 3)
}

func TestListAutoscalingInstancesParseFailure(t *testing.T) {
	t.Parallel()
	f := &awsFake{t: t, autoscalingPages: [][]byte{[]byte("<broken")}}
	c := &fakeClient{fn: f.handle}

	instances, err := ListAutoscalingInstances(context.Background(), c)
	require.Error(t, err)
	assert.Nil(t, instances)
}

func TestFindOwningGroup(t *testing.T) {
	t.Parallel()
	instances := []AutoscalingInstance{
		{InstanceID: "i-a", GroupName: "g1"},
		{InstanceID: "i-b", GroupName: "g2"},
		{InstanceID: "i-b", GroupName: "g3"},
	}

	group, err := FindOwningGroup(instances, "i-b")
	require.NoError(t, err)
	assert.Equal(t, "g2", group)

	_, err = FindOwningGroup(instances, "i-z")
	assert.Equal(t, ErrGroupNotFound, err)

	_, err = FindOwningGroup(nil, "i-a")
	assert.Equal(t, ErrGroupNotFound, err)
}

func TestGroupMembers(t *testing.T) {
	t.Parallel()
	instances := []AutoscalingInstance{
		{InstanceID: "i-a", GroupName: "g1"},
		{InstanceID: "i-b", GroupName: "g2"},
		{InstanceID: "i-c", GroupName: "g1"},
	}
	assert.Equal(t, []string{"i-a", "i-c"}, GroupMembers(instances, "g1"))
	assert.Empty(t, GroupMembers(instances, "g9"))
}
