package role_test

import (
	"math"
	"testing"

	"github.com/Almirante-Ming/Rose/role"
	"github.com/stretchr/testify/require"
)

func TestFromLevel(t *testing.T) {
	t.Run("known levels", func(t *testing.T) {
		require.Equal(t, role.User, role.FromLevel(0).Name)
		require.Equal(t, role.Trainer, role.FromLevel(1).Name)
		require.Equal(t, role.Admin, role.FromLevel(2).Name)

		require.Equal(t, []role.Permission{role.ViewSchedules, role.BookClasses}, role.FromLevel(0).Permissions)
		require.Equal(t, []role.Permission{role.ViewSchedules, role.ManageClasses, role.ViewStudents}, role.FromLevel(1).Permissions)
		require.Len(t, role.FromLevel(2).Permissions, 5)
	})

	t.Run("unknown levels fall back to user", func(t *testing.T) {
		base := role.FromLevel(0)

		for _, level := range []int{-1, 3, 4, 99, -1000, math.MaxInt32, math.MinInt32} {
			got := role.FromLevel(level)

			require.Equal(t, base, got, "level %d", level)
			require.NotEmpty(t, got.Permissions)
		}
	})
}

func TestRoleChecks(t *testing.T) {
	admin := role.FromLevel(2)
	trainer := role.FromLevel(1)
	user := role.FromLevel(0)

	require.True(t, admin.IsAdmin())
	require.True(t, admin.IsTrainer())
	require.False(t, trainer.IsAdmin())
	require.True(t, trainer.IsTrainer())
	require.False(t, user.IsTrainer())

	require.True(t, admin.Has(role.AdminPanel))
	require.False(t, trainer.Has(role.ManageUsers))
	require.True(t, user.Has(role.BookClasses))
	require.False(t, admin.Has(role.BookClasses))
}

func TestRouteFor(t *testing.T) {
	require.Equal(t, role.RouteAdmin, role.RouteFor(role.FromLevel(2)))
	require.Equal(t, role.RouteTrainer, role.RouteFor(role.FromLevel(1)))
	require.Equal(t, role.RouteUser, role.RouteFor(role.FromLevel(0)))
	require.Equal(t, role.RouteUser, role.RouteFor(role.FromLevel(7)))
	require.Equal(t, role.RouteUser, role.RouteFor(role.Role{}))
}

func TestTabs(t *testing.T) {
	require.Equal(t, []role.Tab{role.TabHome, role.TabNewSchedule, role.TabPersonList, role.TabMachineList}, role.Tabs(role.RouteAdmin))
	require.Equal(t, []role.Tab{role.TabHome, role.TabNewSchedule}, role.Tabs(role.RouteTrainer))
	require.Equal(t, []role.Tab{role.TabHome}, role.Tabs(role.RouteUser))
	require.Empty(t, role.Tabs(role.RouteLogin))
}
